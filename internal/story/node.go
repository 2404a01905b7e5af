package story

// NodeRef указывает на узел внутри главы.
type NodeRef struct {
	ChapterID string `yaml:"chapter" json:"chapterId"`
	NodeID    string `yaml:"node" json:"nodeId"`
}

// IsZero is true for a ref that points nowhere.
func (r NodeRef) IsZero() bool { return r.ChapterID == "" && r.NodeID == "" }

func (r NodeRef) String() string { return r.ChapterID + "/" + r.NodeID }

// Chapter is a titled group of nodes.
type Chapter struct {
	ID    string           `yaml:"-" json:"id"`
	Title string           `yaml:"title" json:"title"`
	Nodes map[string]*Node `yaml:"nodes" json:"nodes" validate:"required,min=1"`
}

// Node - один шаг истории. Заполняется из документа и после загрузки не меняется.
type Node struct {
	ID        string `yaml:"-" json:"id"`
	ChapterID string `yaml:"-" json:"chapterId"`

	Speaker string `yaml:"speaker,omitempty" json:"speaker,omitempty"`
	Text    string `yaml:"text,omitempty" json:"text,omitempty"`

	// Подсказки для слоя отображения, движок их не интерпретирует.
	Background string            `yaml:"background,omitempty" json:"background,omitempty"`
	Audio      string            `yaml:"audio,omitempty" json:"audio,omitempty"`
	Music      string            `yaml:"music,omitempty" json:"music,omitempty"`
	Characters map[string]string `yaml:"characters,omitempty" json:"characters,omitempty"`

	Choices          []Choice   `yaml:"choices,omitempty" json:"choices,omitempty" validate:"dive"`
	Challenge        *Challenge `yaml:"judgmentChallenge,omitempty" json:"judgmentChallenge,omitempty"`
	CollectibleToken string     `yaml:"collectibleToken,omitempty" json:"collectibleToken,omitempty"`

	OnSuccessNodeID string `yaml:"onSuccessNodeId,omitempty" json:"onSuccessNodeId,omitempty"`
	OnFailureNodeID string `yaml:"onFailureNodeId,omitempty" json:"onFailureNodeId,omitempty"`
	Next            string `yaml:"next,omitempty" json:"next,omitempty"`
	NextChapterID   string `yaml:"nextChapterId,omitempty" json:"nextChapterId,omitempty"`
	NextNodeID      string `yaml:"nextNodeId,omitempty" json:"nextNodeId,omitempty"`

	branch Branch
}

// Ref returns the node's own address.
func (n *Node) Ref() NodeRef { return NodeRef{ChapterID: n.ChapterID, NodeID: n.ID} }

// Branch возвращает вариант ветвления, вычисленный при загрузке.
func (n *Node) Branch() Branch { return n.branch }

// Choice - вариант ответа в узле с выбором.
type Choice struct {
	Text          string `yaml:"text" json:"text" validate:"required"`
	Type          string `yaml:"type,omitempty" json:"type,omitempty"`
	ScoreCategory string `yaml:"scoreCategory,omitempty" json:"scoreCategory,omitempty" validate:"required_unless=ScoreDelta 0"`
	ScoreDelta    int    `yaml:"scoreDelta,omitempty" json:"scoreDelta,omitempty"`
	Next          string `yaml:"next,omitempty" json:"next,omitempty"`
	Action        string `yaml:"action,omitempty" json:"action,omitempty"`
}

// Challenge - задание со свободным ответом, который оценивает судья.
type Challenge struct {
	Prompt        string      `yaml:"prompt" json:"prompt" validate:"required"`
	Hint          string      `yaml:"hint,omitempty" json:"hint,omitempty"`
	Context       string      `yaml:"context,omitempty" json:"context,omitempty"`
	ScoreCategory string      `yaml:"scoreCategory" json:"scoreCategory" validate:"required"`
	Validation    *PatternSet `yaml:"validation" json:"validation"`
}
