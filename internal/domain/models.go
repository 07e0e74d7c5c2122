package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type PaymentMethod string

const (
	PaymentCash PaymentMethod = "CASH"
	PaymentCard PaymentMethod = "CARD"
	PaymentPix  PaymentMethod = "PIX"
)

var PaymentMethods = []PaymentMethod{PaymentCash, PaymentCard, PaymentPix}

func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentCash, PaymentCard, PaymentPix:
		return true
	}
	return false
}

type Sale struct {
	ID          int64           `json:"id" db:"id"`
	SoldAt      time.Time       `json:"soldAt" db:"sold_at"`
	Description string          `json:"description" db:"description"`
	Gross       decimal.Decimal `json:"gross" db:"gross"`
	Method      PaymentMethod   `json:"method" db:"method"`
	Fee         decimal.Decimal `json:"fee" db:"fee"`
	Net         decimal.Decimal `json:"net" db:"net"`
}

// SaleQuery selects sales with SoldAt in [From, To). Zero bounds are open.
type SaleQuery struct {
	From   time.Time
	To     time.Time
	Method PaymentMethod
	Limit  int
}

type SaleTotals struct {
	Count int64           `json:"count" db:"sale_count"`
	Gross decimal.Decimal `json:"gross" db:"gross"`
	Fee   decimal.Decimal `json:"fee" db:"fee"`
	Net   decimal.Decimal `json:"net" db:"net"`
}

type TodaySummary struct {
	Date     Date                              `json:"date"`
	Count    int64                             `json:"count"`
	Net      decimal.Decimal                   `json:"net"`
	NetByPay map[PaymentMethod]decimal.Decimal `json:"netByMethod"`
}

type DailyPoint struct {
	Date Date            `json:"date"`
	Net  decimal.Decimal `json:"net"`
}

// PeriodReport summarizes the sales of From through To, both inclusive.
type PeriodReport struct {
	From         Date            `json:"from"`
	To           Date            `json:"to"`
	Count        int64           `json:"count"`
	Gross        decimal.Decimal `json:"gross"`
	Fees         decimal.Decimal `json:"fees"`
	Net          decimal.Decimal `json:"net"`
	DailyAverage decimal.Decimal `json:"dailyAverage"`
	Sales        []Sale          `json:"sales"`
}

// PeriodComparison compares the net of two periods. Percent is relative to
// the first period and 0 when the first period had no net.
type PeriodComparison struct {
	FirstFrom  Date            `json:"firstFrom"`
	FirstTo    Date            `json:"firstTo"`
	FirstNet   decimal.Decimal `json:"firstNet"`
	SecondFrom Date            `json:"secondFrom"`
	SecondTo   Date            `json:"secondTo"`
	SecondNet  decimal.Decimal `json:"secondNet"`
	Difference decimal.Decimal `json:"difference"`
	Percent    decimal.Decimal `json:"percent"`
}

type Alerts struct {
	LowStock      bool  `json:"lowStock"`
	CriticalItems int64 `json:"criticalItems"`
	NoSalesToday  bool  `json:"noSalesToday"`
}

type HomeSummary struct {
	TodayCount    int64           `json:"todayCount"`
	TodayNet      decimal.Decimal `json:"todayNet"`
	AllTimeNet    decimal.Decimal `json:"allTimeNet"`
	CriticalItems int64           `json:"criticalItems"`
	LowStock      []InventoryItem `json:"lowStock"`
	RecentSales   []Sale          `json:"recentSales"`
}

type HourBucket struct {
	Hour  int             `json:"hour"`
	Count int64           `json:"count"`
	Net   decimal.Decimal `json:"net"`
}

// DescriptionTotal ranks a description by how often it was sold.
type DescriptionTotal struct {
	Description string          `json:"description" db:"description"`
	Count       int64           `json:"count" db:"sale_count"`
	Gross       decimal.Decimal `json:"gross" db:"gross"`
}

type InventoryItem struct {
	ID        int64           `json:"id" db:"id"`
	Name      string          `json:"name" db:"name"`
	Color     string          `json:"color,omitempty" db:"color"`
	Size      string          `json:"size,omitempty" db:"size"`
	Quantity  int             `json:"quantity" db:"quantity"`
	TotalCost decimal.Decimal `json:"totalCost" db:"total_cost"`
}

// UnitCost is the weighted average cost; zero when nothing is held.
func (i InventoryItem) UnitCost() decimal.Decimal {
	if i.Quantity <= 0 {
		return decimal.Zero
	}
	return i.TotalCost.Div(decimal.NewFromInt(int64(i.Quantity)))
}

type MovementKind string

const (
	MovementIntake  MovementKind = "INTAKE"
	MovementConsume MovementKind = "CONSUME"
	MovementAdjust  MovementKind = "ADJUST"
	MovementRemove  MovementKind = "REMOVE"
)

type StockMovement struct {
	ID         string          `json:"id" db:"id"`
	ItemID     int64           `json:"itemId" db:"item_id"`
	Kind       MovementKind    `json:"kind" db:"kind"`
	Quantity   int             `json:"quantity" db:"quantity"`
	QtyBefore  int             `json:"qtyBefore" db:"qty_before"`
	QtyAfter   int             `json:"qtyAfter" db:"qty_after"`
	CostBefore decimal.Decimal `json:"costBefore" db:"cost_before"`
	CostAfter  decimal.Decimal `json:"costAfter" db:"cost_after"`
	Reason     string          `json:"reason,omitempty" db:"reason"`
	At         time.Time       `json:"at" db:"moved_at"`
}

type InventoryTotals struct {
	Items    int64           `json:"items" db:"item_count"`
	Quantity int64           `json:"quantity" db:"quantity"`
	Value    decimal.Decimal `json:"value" db:"total_value"`
	Critical int64           `json:"critical" db:"critical_count"`
}

type TemplateIcon string

const (
	IconPhoto    TemplateIcon = "PHOTO"
	IconFrame    TemplateIcon = "FRAME"
	IconDocument TemplateIcon = "DOCUMENT"
	IconPolaroid TemplateIcon = "POLAROID"
)

var iconDisplay = map[TemplateIcon][2]string{
	IconPhoto:    {"Foto", "#3b82f6"},
	IconFrame:    {"Moldura", "#10b981"},
	IconDocument: {"Documento", "#f59e0b"},
	IconPolaroid: {"Polaroid", "#ec4899"},
}

func (i TemplateIcon) Valid() bool {
	_, ok := iconDisplay[i]
	return ok
}

func (i TemplateIcon) Label() string {
	return iconDisplay[i][0]
}

func (i TemplateIcon) Color() string {
	return iconDisplay[i][1]
}

type SaleTemplate struct {
	ID              int64           `json:"id" db:"id"`
	Name            string          `json:"name" db:"name"`
	Price           decimal.Decimal `json:"price" db:"price"`
	Size            string          `json:"size,omitempty" db:"size"`
	Icon            TemplateIcon    `json:"icon" db:"icon"`
	Tag             string          `json:"tag,omitempty" db:"tag"`
	InventoryItemID *int64          `json:"inventoryItemId,omitempty" db:"inventory_item_id"`
	ConsumptionQty  int             `json:"consumptionQty" db:"consumption_qty"`
	Active          bool            `json:"active" db:"active"`
}

// TemplateQuery filters templates. Name matches case-insensitively.
type TemplateQuery struct {
	ActiveOnly bool
	Tag        string
	Name       string
}

type TemplateStock struct {
	Template  SaleTemplate `json:"template"`
	Linked    bool         `json:"linked"`
	ItemName  string       `json:"itemName,omitempty"`
	Available int          `json:"available"`
}

type CashClosing struct {
	Date       Date                `json:"date" db:"business_date"`
	ClosedAt   time.Time           `json:"closedAt" db:"closed_at"`
	Gross      decimal.Decimal     `json:"gross" db:"gross"`
	Fees       decimal.Decimal     `json:"fees" db:"fees"`
	Net        decimal.Decimal     `json:"net" db:"net"`
	CashNet    decimal.Decimal     `json:"cashNet" db:"cash_net"`
	CardNet    decimal.Decimal     `json:"cardNet" db:"card_net"`
	PixNet     decimal.Decimal     `json:"pixNet" db:"pix_net"`
	Counted    decimal.NullDecimal `json:"counted" db:"counted_amount"`
	Difference decimal.NullDecimal `json:"difference" db:"difference"`
	Note       string              `json:"note,omitempty" db:"note"`
	Automatic  bool                `json:"automatic" db:"automatic"`
}

type SaleRequest struct {
	Description string          `json:"description" validate:"required"`
	Gross       decimal.Decimal `json:"gross" validate:"gte=0"`
	Method      PaymentMethod   `json:"method" validate:"required,oneof=CASH CARD PIX"`
	SoldAt      time.Time       `json:"soldAt"`
}

type ItemCreateRequest struct {
	Name      string          `json:"name" validate:"required"`
	Color     string          `json:"color"`
	Size      string          `json:"size"`
	Quantity  int             `json:"quantity" validate:"gte=0"`
	TotalCost decimal.Decimal `json:"totalCost" validate:"gte=0"`
}

type ItemCatalogRequest struct {
	Name  string `json:"name" validate:"required"`
	Color string `json:"color"`
	Size  string `json:"size"`
}

type StockIntakeRequest struct {
	Quantity int             `json:"quantity" validate:"gt=0"`
	LotCost  decimal.Decimal `json:"lotCost" validate:"gte=0"`
}

type StockAdjustmentRequest struct {
	Quantity  int             `json:"quantity" validate:"gte=0"`
	TotalCost decimal.Decimal `json:"totalCost" validate:"gte=0"`
	Reason    string          `json:"reason"`
}

type TemplateRequest struct {
	Name            string          `json:"name" validate:"required"`
	Price           decimal.Decimal `json:"price" validate:"gte=0"`
	Size            string          `json:"size"`
	Icon            TemplateIcon    `json:"icon" validate:"required,oneof=PHOTO FRAME DOCUMENT POLAROID"`
	Tag             string          `json:"tag"`
	InventoryItemID *int64          `json:"inventoryItemId"`
	ConsumptionQty  int             `json:"consumptionQty" validate:"gte=1"`
}

type ManualCloseRequest struct {
	Date    Date            `json:"date"`
	Counted decimal.Decimal `json:"counted" validate:"gte=0"`
	Note    string          `json:"note"`
}
