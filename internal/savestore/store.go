// Package savestore хранит сохранения прохождений. Каждое сохранение получает
// непрозрачный токен и принадлежит одному владельцу (игроку).
package savestore

import (
	"context"
	"errors"
)

var (
	// ErrNotFound - нет сохранения с таким токеном у этого владельца.
	ErrNotFound = errors.New("save not found")
	// ErrCorruptSave - данные сохранения не удалось разобрать. Частичное состояние не возвращается.
	ErrCorruptSave = errors.New("corrupt save data")
)

// Store - контракт хранилища сохранений.
type Store interface {
	// Save записывает состояние и возвращает токен для последующей загрузки.
	Save(ctx context.Context, owner string, rec Record) (string, error)
	// Load возвращает сохранение владельца по токену.
	Load(ctx context.Context, owner, token string) (Record, error)
	// Latest возвращает токен самого свежего сохранения владельца или ErrNotFound.
	Latest(ctx context.Context, owner string) (string, error)
}
