package constants

import "time"

// Buyurtma konstantalari
const (
	// CancelWindow customer self-service cancellation window after creation
	CancelWindow = 90 * time.Second

	// OrderIDPrefix prefix of generated order codes: CT<YYMM>-<5 base36>
	OrderIDPrefix = "CT"

	// OrderIDSuffixLen random suffix length
	OrderIDSuffixLen = 5

	// DefaultCarrier is stored when the operator omits the delivery service
	DefaultCarrier = "Не указана"

	// AdminOrdersListLimit orders shown in the admin list
	AdminOrdersListLimit = 15

	// AdminOrdersButtonsLimit orders that get a detail button
	AdminOrdersButtonsLimit = 8
)

// Sozlamalar
const (
	// SettingMarkup key of the global markup percentage
	SettingMarkup = "markup"

	// MaxMarkupPercent upper bound accepted by /amarkup
	MaxMarkupPercent = 500
)

// Support konstantalari
const (
	// SupportRecentLimit messages shown when switching chats
	SupportRecentLimit = 10

	// QuestionPreviewLen queue preview length (runes)
	QuestionPreviewLen = 60
)

// Telegram konstantalari
const (
	// MessageLimit Telegram text message limit
	MessageLimit = 4096

	// AdminUsersListLimit users shown in /ausers
	AdminUsersListLimit = 20

	// MinCarYear lowest accepted year in the garage wizard
	MinCarYear = 1950
)

// Event konstantalari
const (
	EventTypeOrderPlaced = "ORDER_PLACED"
	OrderPlacedVersion   = 1
)
