package backend

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/tidwall/gjson"
)

const (
	OrderPending   = "pending"
	OrderCompleted = "completed"
	OrderCancelled = "cancelled"

	RechargePending  = "pending"
	RechargeApproved = "approved"
	RechargeRejected = "rejected"

	MethodBank = "bank"
	MethodUSDT = "usdt"
)

type DeliveryInfo struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Address   string `json:"address"`
	City      string `json:"city"`
	State     string `json:"state"`
	ZipCode   string `json:"zipCode"`
	Country   string `json:"country"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
}

func (d DeliveryInfo) FullName() string {
	return strings.TrimSpace(d.FirstName + " " + d.LastName)
}

type Order struct {
	OrderID          string          `json:"orderId"`
	ProductName      string          `json:"productName"`
	ProductPrice     decimal.Decimal `json:"productPrice"`
	Quantity         int64           `json:"quantity"`
	BuyerUsername    string          `json:"buyerUsername"`
	BuyerEmail       string          `json:"buyerEmail"`
	StreamTitle      string          `json:"streamTitle"`
	StreamerUsername string          `json:"streamerUsername"`
	CoinValue        int64           `json:"coinValue"`
	Status           string          `json:"status"`
	OrderedAt        time.Time       `json:"orderedAt"`
	DeliveryInfo     *DeliveryInfo   `json:"deliveryInfo,omitempty"`
}

type OrderStats struct {
	TotalOrders     int64           `json:"totalOrders"`
	CompletedOrders int64           `json:"completedOrders"`
	PendingOrders   int64           `json:"pendingOrders"`
	CancelledOrders int64           `json:"cancelledOrders"`
	TotalRevenue    decimal.Decimal `json:"totalRevenue"`
}

// RevenueCoins 返回 floor(totalRevenue/100)。
func (s OrderStats) RevenueCoins() int64 {
	return s.TotalRevenue.Div(decimal.NewFromInt(100)).Floor().IntPart()
}

type Pagination struct {
	Total int64 `json:"total"`
	Page  int64 `json:"page"`
	Limit int64 `json:"limit"`
	Pages int64 `json:"pages"`
	// HasNextPage 为 nil 表示后端未给出该字段。
	HasNextPage *bool `json:"hasNextPage,omitempty"`
}

type RechargeUser struct {
	ID       string `json:"_id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

type RechargeDetails struct {
	TransactionID   string              `json:"transactionId,omitempty"`
	WalletAddress   string              `json:"walletAddress,omitempty"`
	USDTAmount      decimal.NullDecimal `json:"usdtAmount"`
	TransactionHash string              `json:"transactionHash,omitempty"`
}

type Recharge struct {
	ID            string          `json:"_id"`
	User          RechargeUser    `json:"userId"`
	Method        string          `json:"method"`
	Status        string          `json:"status"`
	Amount        decimal.Decimal `json:"amount"`
	PointsToAdd   int64           `json:"pointsToAdd"`
	UserBalance   *int64          `json:"userBalance,omitempty"`
	RequestedAt   time.Time       `json:"requestedAt"`
	ApprovedAt    *time.Time      `json:"approvedAt,omitempty"`
	RejectedAt    *time.Time      `json:"rejectedAt,omitempty"`
	Details       RechargeDetails `json:"details"`
	ScreenshotURL string          `json:"screenshotUrl,omitempty"`
	AutoApproved  bool            `json:"autoApproved"`
	Notes         string          `json:"notes,omitempty"`
	Reason        string          `json:"reason,omitempty"`
}

// Reference 返回用于搜索/展示的交易凭证：银行流水号或链上哈希。
func (r Recharge) Reference() string {
	if r.Details.TransactionID != "" {
		return r.Details.TransactionID
	}
	return r.Details.TransactionHash
}

type Setting struct {
	Key         string     `json:"key"`
	Value       float64    `json:"value"`
	Description string     `json:"description"`
	Category    string     `json:"category"`
	UpdatedAt   *time.Time `json:"updatedAt,omitempty"`
}

func parseOrder(v gjson.Result) Order {
	o := Order{
		OrderID:          str(v, "orderId"),
		ProductName:      str(v, "productName"),
		ProductPrice:     decimalOf(v.Get("productPrice")),
		Quantity:         v.Get("quantity").Int(),
		BuyerUsername:    str(v, "buyerUsername"),
		BuyerEmail:       str(v, "buyerEmail"),
		StreamTitle:      str(v, "streamTitle"),
		StreamerUsername: str(v, "streamerUsername"),
		CoinValue:        v.Get("coinValue").Int(),
		Status:           strings.ToLower(str(v, "status")),
		OrderedAt:        timeOf(v.Get("orderedAt")),
	}
	if o.OrderID == "" {
		o.OrderID = str(v, "_id")
	}
	if d := v.Get("deliveryInfo"); d.IsObject() {
		o.DeliveryInfo = &DeliveryInfo{
			FirstName: str(d, "firstName"),
			LastName:  str(d, "lastName"),
			Address:   str(d, "address"),
			City:      str(d, "city"),
			State:     str(d, "state"),
			ZipCode:   str(d, "zipCode"),
			Country:   str(d, "country"),
			Email:     str(d, "email"),
			Phone:     str(d, "phone"),
		}
	}
	return o
}

func parseOrderStats(v gjson.Result) OrderStats {
	return OrderStats{
		TotalOrders:     v.Get("totalOrders").Int(),
		CompletedOrders: v.Get("completedOrders").Int(),
		PendingOrders:   v.Get("pendingOrders").Int(),
		CancelledOrders: v.Get("cancelledOrders").Int(),
		TotalRevenue:    decimalOf(v.Get("totalRevenue")),
	}
}

func parsePagination(v gjson.Result) *Pagination {
	if !v.IsObject() {
		return nil
	}
	p := &Pagination{
		Total: v.Get("total").Int(),
		Page:  v.Get("page").Int(),
		Limit: v.Get("limit").Int(),
		Pages: v.Get("pages").Int(),
	}
	if h := v.Get("hasNextPage"); h.IsBool() {
		b := h.Bool()
		p.HasNextPage = &b
	}
	return p
}

func parseRecharge(v gjson.Result) Recharge {
	r := Recharge{
		ID:            str(v, "_id"),
		Method:        strings.ToLower(str(v, "method")),
		Status:        strings.ToLower(str(v, "status")),
		Amount:        decimalOf(v.Get("amount")),
		PointsToAdd:   v.Get("pointsToAdd").Int(),
		RequestedAt:   timeOf(v.Get("requestedAt")),
		ApprovedAt:    optTime(v.Get("approvedAt")),
		RejectedAt:    optTime(v.Get("rejectedAt")),
		ScreenshotURL: str(v, "screenshotUrl"),
		AutoApproved:  v.Get("metadata.autoApproved").Bool(),
		Notes:         str(v, "notes"),
		Reason:        str(v, "reason"),
	}
	if r.RequestedAt.IsZero() {
		r.RequestedAt = timeOf(v.Get("createdAt"))
	}
	if b := v.Get("userBalance"); b.Exists() && b.Type == gjson.Number {
		n := b.Int()
		r.UserBalance = &n
	}
	// userId 可能是已 populate 的对象，也可能只是 id 字符串。
	if u := v.Get("userId"); u.IsObject() {
		r.User = RechargeUser{ID: str(u, "_id"), Username: str(u, "username"), Email: str(u, "email")}
	} else {
		r.User = RechargeUser{ID: u.String()}
	}
	d := v.Get("details")
	r.Details = RechargeDetails{
		TransactionID:   str(d, "transactionId"),
		WalletAddress:   str(d, "walletAddress"),
		TransactionHash: str(d, "transactionHash"),
	}
	if amt := d.Get("usdtAmount"); amt.Exists() && amt.Type != gjson.Null {
		r.Details.USDTAmount = decimal.NullDecimal{Decimal: decimalOf(amt), Valid: true}
	}
	return r
}

func parseSetting(v gjson.Result) Setting {
	return Setting{
		Key:         str(v, "key"),
		Value:       v.Get("value").Float(),
		Description: str(v, "description"),
		Category:    strings.ToLower(str(v, "category")),
		UpdatedAt:   optTime(v.Get("updatedAt")),
	}
}

func str(v gjson.Result, path string) string {
	return strings.TrimSpace(v.Get(path).String())
}

// decimalOf 接受 JSON 数字或数字字符串；无法解析时为 0。
func decimalOf(v gjson.Result) decimal.Decimal {
	switch v.Type {
	case gjson.Number:
		if d, err := decimal.NewFromString(v.Raw); err == nil {
			return d
		}
		return decimal.NewFromFloat(v.Float())
	case gjson.String:
		if d, err := decimal.NewFromString(strings.TrimSpace(v.Str)); err == nil {
			return d
		}
	}
	return decimal.Zero
}

// timeOf 接受 RFC3339 字符串或毫秒时间戳。
func timeOf(v gjson.Result) time.Time {
	switch v.Type {
	case gjson.String:
		s := strings.TrimSpace(v.Str)
		if s == "" {
			return time.Time{}
		}
		if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
			return t.UTC()
		}
	case gjson.Number:
		return time.UnixMilli(v.Int()).UTC()
	}
	return time.Time{}
}

func optTime(v gjson.Result) *time.Time {
	t := timeOf(v)
	if t.IsZero() {
		return nil
	}
	return &t
}
