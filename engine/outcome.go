package engine

type Action string

const (
	ActionInsert Action = "insert"
	ActionUpdate Action = "update"
)

type Outcome struct {
	Action   Action   `json:"action"`
	RecordId string   `json:"record_id"`
	Tags     []string `json:"tags"`
	Message  string   `json:"message"`
}
