package models

import "strings"

// APIResponse is the standard JSON envelope for all API responses.
type APIResponse struct {
	Data interface{} `json:"data"`
}

// Role is an employee's access level.
type Role string

const (
	RoleReadOnly Role = "readonly"
	RoleOperator Role = "operator"
	RoleAdmin    Role = "admin"
	RoleDisabled Role = "disabled"
)

// Quote statuses.
const (
	QuoteInquiring = "inquiring"
	QuoteOffered   = "offered"
	QuoteCancelled = "cancelled"
)

// Sales order return statuses.
const (
	ReturnNormal  = "normal"
	ReturnPartial = "partial_return"
	ReturnFull    = "returned"
)

// Currency codes with a display price column.
const (
	CurrencyKRW = "KRW"
	CurrencyUSD = "USD"
)

// Id prefixes for generated stage ids.
const (
	PrefixQuote    = "Q"
	PrefixOffer    = "O"
	PrefixOrder    = "SO"
	PrefixPurchase = "PU"
)

// DefaultMarginRate applies to clients created without one.
const DefaultMarginRate = 10.0

type Employee struct {
	ID           string `db:"emp_id" json:"emp_id"`
	Name         string `db:"emp_name" json:"emp_name"`
	Department   string `db:"department" json:"department"`
	Position     string `db:"position" json:"position"`
	Contact      string `db:"contact" json:"contact"`
	Account      string `db:"account" json:"account"`
	PasswordHash string `db:"password_hash" json:"-"`
	HireDate     string `db:"hire_date" json:"hire_date"`
	Role         Role   `db:"role" json:"role"`
	Remark       string `db:"remark" json:"remark"`
	CreatedAt    string `db:"created_at" json:"created_at"`

	FailedLoginAttempts int     `db:"failed_login_attempts" json:"-"`
	LockedUntil         *string `db:"locked_until" json:"-"`
}

type Client struct {
	ID           string  `db:"cli_id" json:"cli_id"`
	Name         string  `db:"cli_name" json:"cli_name"`
	Region       string  `db:"region" json:"region"`
	CreditLevel  string  `db:"credit_level" json:"credit_level"`
	MarginRate   float64 `db:"margin_rate" json:"margin_rate"`
	EmpID        string  `db:"emp_id" json:"emp_id"`
	Website      string  `db:"website" json:"website"`
	PaymentTerms string  `db:"payment_terms" json:"payment_terms"`
	Email        string  `db:"email" json:"email"`
	Phone        string  `db:"phone" json:"phone"`
	Remark       string  `db:"remark" json:"remark"`
	CreatedAt    string  `db:"created_at" json:"created_at"`
}

type Vendor struct {
	ID        string `db:"vendor_id" json:"vendor_id"`
	Name      string `db:"vendor_name" json:"vendor_name"`
	Address   string `db:"address" json:"address"`
	QQ        string `db:"qq" json:"qq"`
	WeChat    string `db:"wechat" json:"wechat"`
	Email     string `db:"email" json:"email"`
	Remark    string `db:"remark" json:"remark"`
	CreatedAt string `db:"created_at" json:"created_at"`
}

// DailyRate is one recorded exchange rate. Unique per (RecordDate, CurrencyCode).
type DailyRate struct {
	ID           int64   `db:"id" json:"id"`
	RecordDate   string  `db:"record_date" json:"record_date"`
	CurrencyCode string  `db:"currency_code" json:"currency_code"`
	ExchangeRate float64 `db:"exchange_rate" json:"exchange_rate"`
	CreatedAt    string  `db:"created_at" json:"created_at"`
}

type Quote struct {
	ID             string  `db:"quote_id" json:"quote_id"`
	QuoteDate      string  `db:"quote_date" json:"quote_date"`
	CliID          string  `db:"cli_id" json:"cli_id"`
	InquiryMPN     string  `db:"inquiry_mpn" json:"inquiry_mpn"`
	QuotedMPN      string  `db:"quoted_mpn" json:"quoted_mpn"`
	InquiryBrand   string  `db:"inquiry_brand" json:"inquiry_brand"`
	InquiryQty     int     `db:"inquiry_qty" json:"inquiry_qty"`
	TargetPriceRMB float64 `db:"target_price_rmb" json:"target_price_rmb"`
	CostPriceRMB   float64 `db:"cost_price_rmb" json:"cost_price_rmb"`
	DateCode       string  `db:"date_code" json:"date_code"`
	DeliveryDate   string  `db:"delivery_date" json:"delivery_date"`
	Status         string  `db:"status" json:"status"`
	Remark         string  `db:"remark" json:"remark"`
	IsTransferred  bool    `db:"is_transferred" json:"is_transferred"`
	CreatedAt      string  `db:"created_at" json:"created_at"`
}

type Offer struct {
	ID             string  `db:"offer_id" json:"offer_id"`
	OfferDate      string  `db:"offer_date" json:"offer_date"`
	QuoteID        *string `db:"quote_id" json:"quote_id"`
	InquiryMPN     string  `db:"inquiry_mpn" json:"inquiry_mpn"`
	QuotedMPN      string  `db:"quoted_mpn" json:"quoted_mpn"`
	InquiryBrand   string  `db:"inquiry_brand" json:"inquiry_brand"`
	QuotedBrand    string  `db:"quoted_brand" json:"quoted_brand"`
	InquiryQty     int     `db:"inquiry_qty" json:"inquiry_qty"`
	ActualQty      int     `db:"actual_qty" json:"actual_qty"`
	QuotedQty      int     `db:"quoted_qty" json:"quoted_qty"`
	CostPriceRMB   float64 `db:"cost_price_rmb" json:"cost_price_rmb"`
	OfferPriceRMB  float64 `db:"offer_price_rmb" json:"offer_price_rmb"`
	PriceKRW       float64 `db:"price_krw" json:"price_krw"`
	PriceUSD       float64 `db:"price_usd" json:"price_usd"`
	Platform       string  `db:"platform" json:"platform"`
	VendorID       *string `db:"vendor_id" json:"vendor_id"`
	DateCode       string  `db:"date_code" json:"date_code"`
	DeliveryDate   string  `db:"delivery_date" json:"delivery_date"`
	EmpID          string  `db:"emp_id" json:"emp_id"`
	OfferStatement string  `db:"offer_statement" json:"offer_statement"`
	Remark         string  `db:"remark" json:"remark"`
	IsTransferred  bool    `db:"is_transferred" json:"is_transferred"`
	CreatedAt      string  `db:"created_at" json:"created_at"`

	// Derived on read.
	Profit      float64 `db:"-" json:"profit"`
	TotalProfit int64   `db:"-" json:"total_profit"`
}

type SalesOrder struct {
	ID            string  `db:"order_id" json:"order_id"`
	OrderNo       string  `db:"order_no" json:"order_no"`
	OrderDate     string  `db:"order_date" json:"order_date"`
	CliID         string  `db:"cli_id" json:"cli_id"`
	OfferID       *string `db:"offer_id" json:"offer_id"`
	InquiryMPN    string  `db:"inquiry_mpn" json:"inquiry_mpn"`
	InquiryBrand  string  `db:"inquiry_brand" json:"inquiry_brand"`
	Qty           int     `db:"qty" json:"qty"`
	PriceRMB      float64 `db:"price_rmb" json:"price_rmb"`
	PriceKRW      float64 `db:"price_krw" json:"price_krw"`
	PriceUSD      float64 `db:"price_usd" json:"price_usd"`
	CostPriceRMB  float64 `db:"cost_price_rmb" json:"cost_price_rmb"`
	IsFinished    bool    `db:"is_finished" json:"is_finished"`
	IsPaid        bool    `db:"is_paid" json:"is_paid"`
	PaidAmount    float64 `db:"paid_amount" json:"paid_amount"`
	ReturnStatus  string  `db:"return_status" json:"return_status"`
	Remark        string  `db:"remark" json:"remark"`
	IsTransferred bool    `db:"is_transferred" json:"is_transferred"`
	CreatedAt     string  `db:"created_at" json:"created_at"`

	Profit      float64 `db:"-" json:"profit"`
	TotalProfit int64   `db:"-" json:"total_profit"`
}

type PurchaseOrder struct {
	ID                string  `db:"buy_id" json:"buy_id"`
	BuyDate           string  `db:"buy_date" json:"buy_date"`
	OrderID           *string `db:"order_id" json:"order_id"`
	VendorID          *string `db:"vendor_id" json:"vendor_id"`
	BuyMPN            string  `db:"buy_mpn" json:"buy_mpn"`
	BuyBrand          string  `db:"buy_brand" json:"buy_brand"`
	BuyPriceRMB       float64 `db:"buy_price_rmb" json:"buy_price_rmb"`
	BuyQty            int     `db:"buy_qty" json:"buy_qty"`
	SalesPriceRMB     float64 `db:"sales_price_rmb" json:"sales_price_rmb"`
	TotalAmount       float64 `db:"total_amount" json:"total_amount"`
	IsSourceConfirmed bool    `db:"is_source_confirmed" json:"is_source_confirmed"`
	IsOrdered         bool    `db:"is_ordered" json:"is_ordered"`
	IsInStock         bool    `db:"is_instock" json:"is_instock"`
	IsShipped         bool    `db:"is_shipped" json:"is_shipped"`
	Remark            string  `db:"remark" json:"remark"`
	CreatedAt         string  `db:"created_at" json:"created_at"`
}

// AuditEntry is one row of audit_log.
type AuditEntry struct {
	ID        int64  `db:"id" json:"id"`
	EmpID     string `db:"emp_id" json:"emp_id"`
	Action    string `db:"action" json:"action"`
	Module    string `db:"module" json:"module"`
	RecordID  string `db:"record_id" json:"record_id"`
	Summary   string `db:"summary" json:"summary"`
	CreatedAt string `db:"created_at" json:"created_at"`
}

// StrPtr returns nil for blank strings, otherwise a pointer to s.
func StrPtr(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

// Deref returns the pointed-to string or "".
func Deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
