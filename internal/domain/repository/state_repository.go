package repository

import "context"

// ChatAction names the wizard step a chat is in.
type ChatAction string

const (
	ActionNone                 ChatAction = ""
	ActionAwaitSupportQuestion ChatAction = "awaiting_support_question"
	ActionSupportChat          ChatAction = "support_chat"
	ActionAwaitCustomBrand     ChatAction = "awaiting_custom_brand"
	ActionSelectingCar         ChatAction = "selecting_car"
	ActionAwaitCustomModel     ChatAction = "awaiting_custom_model"
	ActionSelectingYear        ChatAction = "selecting_year"
	ActionAwaitCustomYear      ChatAction = "awaiting_custom_year"
	ActionAwaitCustomEngine    ChatAction = "awaiting_custom_engine"
	ActionAdminAwaitTracking   ChatAction = "admin_add_track"
)

// ChatState is transient per-chat UI state. It is never a source of truth.
type ChatState struct {
	Action        ChatAction `json:"action"`
	SessionID     int64      `json:"session_id,omitempty"`
	TargetUserID  int64      `json:"target_user_id,omitempty"`
	OrderID       string     `json:"order_id,omitempty"`
	BrandID       string     `json:"brand_id,omitempty"`
	BrandName     string     `json:"brand_name,omitempty"`
	Model         string     `json:"model,omitempty"`
	Year          int        `json:"year,omitempty"`
	IsCustomBrand bool       `json:"is_custom_brand,omitempty"`
}

// StateRepository holds ChatState keyed by chat id, last write wins.
// Implementations are wiped by Reset on process start.
type StateRepository interface {
	Get(ctx context.Context, chatID int64) (ChatState, bool, error)
	Set(ctx context.Context, chatID int64, state ChatState) error
	Delete(ctx context.Context, chatID int64) error
	Reset(ctx context.Context) error
}
