package console

import (
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"streammall/internal/backend"
	"streammall/internal/export"
	"streammall/internal/viewmodel"
)

const (
	SortBuyer = "buyer"
	SortUser  = "user"
	SortKey   = "key"
)

var OrderFields = viewmodel.Fields[backend.Order]{
	Status: func(o backend.Order) string { return o.Status },
	Search: []func(backend.Order) string{
		func(o backend.Order) string { return o.BuyerUsername },
		func(o backend.Order) string { return o.ProductName },
		func(o backend.Order) string { return o.StreamTitle },
		func(o backend.Order) string { return o.BuyerEmail },
	},
	Sorts: map[string]viewmodel.Comparator[backend.Order]{
		viewmodel.SortDate:  viewmodel.ByTimeDesc(func(o backend.Order) time.Time { return o.OrderedAt }),
		viewmodel.SortValue: viewmodel.ByNumberDesc(func(o backend.Order) int64 { return o.CoinValue }),
		SortBuyer:           viewmodel.ByTextAsc(func(o backend.Order) string { return o.BuyerUsername }),
	},
}

var RechargeFields = viewmodel.Fields[backend.Recharge]{
	Status: func(r backend.Recharge) string { return r.Status },
	Search: []func(backend.Recharge) string{
		func(r backend.Recharge) string { return r.User.Username },
		func(r backend.Recharge) string { return r.User.Email },
		func(r backend.Recharge) string { return r.Method },
		func(r backend.Recharge) string { return r.Details.TransactionID },
		func(r backend.Recharge) string { return r.Details.TransactionHash },
		func(r backend.Recharge) string { return r.Details.WalletAddress },
	},
	Sorts: map[string]viewmodel.Comparator[backend.Recharge]{
		viewmodel.SortDate:  viewmodel.ByTimeDesc(func(r backend.Recharge) time.Time { return r.RequestedAt }),
		viewmodel.SortValue: viewmodel.ByNumberDesc(func(r backend.Recharge) int64 { return r.PointsToAdd }),
		SortUser:            viewmodel.ByTextAsc(func(r backend.Recharge) string { return r.User.Username }),
	},
}

var SettingFields = viewmodel.Fields[backend.Setting]{
	Status: func(s backend.Setting) string { return s.Category },
	Search: []func(backend.Setting) string{
		func(s backend.Setting) string { return s.Key },
		func(s backend.Setting) string { return s.Description },
	},
	Sorts: map[string]viewmodel.Comparator[backend.Setting]{
		viewmodel.SortDate: viewmodel.ByTimeDesc(func(s backend.Setting) time.Time {
			if s.UpdatedAt == nil {
				return time.Time{}
			}
			return *s.UpdatedAt
		}),
		viewmodel.SortValue: viewmodel.ByNumberDesc(func(s backend.Setting) float64 { return s.Value }),
		SortKey:             viewmodel.ByTextAsc(func(s backend.Setting) string { return s.Key }),
	},
}

// csvTime 统一导出时间格式；零值输出 N/A。
func csvTime(t time.Time, loc *time.Location) string {
	if t.IsZero() {
		return export.NotAvailable
	}
	return t.In(loc).Format("2006-01-02 15:04:05")
}

func csvTimePtr(t *time.Time, loc *time.Location) string {
	if t == nil {
		return export.NotAvailable
	}
	return csvTime(*t, loc)
}

func deliveryField(o backend.Order, get func(backend.DeliveryInfo) string) string {
	if o.DeliveryInfo == nil {
		return export.NotAvailable
	}
	return export.Or(get(*o.DeliveryInfo))
}

func OrderColumns(loc *time.Location) []export.Column[backend.Order] {
	return []export.Column[backend.Order]{
		{Header: "Order ID", Value: func(o backend.Order) string { return o.OrderID }},
		{Header: "Product", Value: func(o backend.Order) string { return o.ProductName }},
		{Header: "Buyer", Value: func(o backend.Order) string { return o.BuyerUsername }},
		{Header: "Email", Value: func(o backend.Order) string { return o.BuyerEmail }},
		{Header: "Stream", Value: func(o backend.Order) string { return o.StreamTitle }},
		{Header: "Quantity", Value: func(o backend.Order) string { return strconv.FormatInt(o.Quantity, 10) }},
		{Header: "Coin Value", Value: func(o backend.Order) string { return strconv.FormatInt(o.CoinValue, 10) }},
		{Header: "Status", Value: func(o backend.Order) string { return o.Status }},
		{Header: "Date", Value: func(o backend.Order) string { return csvTime(o.OrderedAt, loc) }},
		{Header: "Address", Value: func(o backend.Order) string {
			return deliveryField(o, func(d backend.DeliveryInfo) string { return d.Address })
		}},
		{Header: "City", Value: func(o backend.Order) string {
			return deliveryField(o, func(d backend.DeliveryInfo) string { return d.City })
		}},
		{Header: "State", Value: func(o backend.Order) string {
			return deliveryField(o, func(d backend.DeliveryInfo) string { return d.State })
		}},
		{Header: "ZIP", Value: func(o backend.Order) string {
			return deliveryField(o, func(d backend.DeliveryInfo) string { return d.ZipCode })
		}},
		{Header: "Country", Value: func(o backend.Order) string {
			return deliveryField(o, func(d backend.DeliveryInfo) string { return d.Country })
		}},
		{Header: "Phone", Value: func(o backend.Order) string {
			return deliveryField(o, func(d backend.DeliveryInfo) string { return d.Phone })
		}},
		{Header: "Streamer", Value: func(o backend.Order) string { return export.Or(o.StreamerUsername) }},
	}
}

func RechargeColumns(loc *time.Location) []export.Column[backend.Recharge] {
	return []export.Column[backend.Recharge]{
		{Header: "Request ID", Value: func(r backend.Recharge) string { return r.ID }},
		{Header: "User", Value: func(r backend.Recharge) string { return export.Or(r.User.Username) }},
		{Header: "Email", Value: func(r backend.Recharge) string { return export.Or(r.User.Email) }},
		{Header: "Method", Value: func(r backend.Recharge) string { return r.Method }},
		{Header: "Amount", Value: func(r backend.Recharge) string { return r.Amount.String() }},
		{Header: "Points", Value: func(r backend.Recharge) string { return strconv.FormatInt(r.PointsToAdd, 10) }},
		{Header: "Balance", Value: func(r backend.Recharge) string {
			if r.UserBalance == nil {
				return export.NotAvailable
			}
			return strconv.FormatInt(*r.UserBalance, 10)
		}},
		{Header: "Status", Value: func(r backend.Recharge) string { return r.Status }},
		{Header: "Reference", Value: func(r backend.Recharge) string { return export.Or(r.Reference()) }},
		{Header: "Wallet", Value: func(r backend.Recharge) string { return export.Or(r.Details.WalletAddress) }},
		{Header: "Auto Approved", Value: func(r backend.Recharge) string {
			if r.AutoApproved {
				return "Yes"
			}
			return "No"
		}},
		{Header: "Requested", Value: func(r backend.Recharge) string { return csvTime(r.RequestedAt, loc) }},
		{Header: "Approved", Value: func(r backend.Recharge) string { return csvTimePtr(r.ApprovedAt, loc) }},
		{Header: "Rejected", Value: func(r backend.Recharge) string { return csvTimePtr(r.RejectedAt, loc) }},
	}
}

func SettingColumns(loc *time.Location) []export.Column[backend.Setting] {
	return []export.Column[backend.Setting]{
		{Header: "Key", Value: func(s backend.Setting) string { return s.Key }},
		{Header: "Value", Value: func(s backend.Setting) string { return FormatValue(s.Value) }},
		{Header: "Category", Value: func(s backend.Setting) string { return export.Or(s.Category) }},
		{Header: "Description", Value: func(s backend.Setting) string { return export.Or(s.Description) }},
		{Header: "Updated", Value: func(s backend.Setting) string { return csvTimePtr(s.UpdatedAt, loc) }},
	}
}

// HumanizeKey：daily_reward → Daily Reward。Caser 有状态，不能跨 goroutine 共享。
func HumanizeKey(key string) string {
	return cases.Title(language.English).String(strings.ReplaceAll(strings.TrimSpace(key), "_", " "))
}

func CategoryColor(category string) string {
	switch category {
	case "rewards":
		return "#f39c12"
	case "limits":
		return "#e74c3c"
	case "features":
		return "#3498db"
	default:
		return "#95a5a6"
	}
}

// FormatValue 输出最短的十进制表示：5 → "5"，2.5 → "2.5"。
func FormatValue(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
