package accounts

import (
	"fmt"
	"time"
)

// AccountType enumerates CoA categories.
type AccountType string

const (
	AccountTypeAsset     AccountType = "ASSET"
	AccountTypeLiability AccountType = "LIABILITY"
	AccountTypeEquity    AccountType = "EQUITY"
	AccountTypeRevenue   AccountType = "REVENUE"
	AccountTypeExpense   AccountType = "EXPENSE"
)

// NormalBalance is the side on which an account conventionally increases.
type NormalBalance string

const (
	NormalDebit  NormalBalance = "DEBIT"
	NormalCredit NormalBalance = "CREDIT"
)

// Subtype refines an account type for statement placement.
type Subtype string

const (
	SubtypeCurrentAsset      Subtype = "CURRENT_ASSET"
	SubtypeFixedAsset        Subtype = "FIXED_ASSET"
	SubtypeOtherAsset        Subtype = "OTHER_ASSET"
	SubtypeCurrentLiability  Subtype = "CURRENT_LIABILITY"
	SubtypeLongTermLiability Subtype = "LONG_TERM_LIABILITY"
	SubtypeOwnerEquity       Subtype = "OWNER_EQUITY"
	SubtypeRetainedEarnings  Subtype = "RETAINED_EARNINGS"
	SubtypeSuspense          Subtype = "SUSPENSE"
	SubtypeOperatingRevenue  Subtype = "OPERATING_REVENUE"
	SubtypeOtherRevenue      Subtype = "OTHER_REVENUE"
	SubtypeCostOfGoodsSold   Subtype = "COST_OF_GOODS_SOLD"
	SubtypeOperatingExpense  Subtype = "OPERATING_EXPENSE"
	SubtypeOtherExpense      Subtype = "OTHER_EXPENSE"
)

// subtypes lists allowed subtypes per type; the first one is the default.
var subtypes = map[AccountType][]Subtype{
	AccountTypeAsset:     {SubtypeCurrentAsset, SubtypeFixedAsset, SubtypeOtherAsset},
	AccountTypeLiability: {SubtypeCurrentLiability, SubtypeLongTermLiability},
	AccountTypeEquity:    {SubtypeOwnerEquity, SubtypeRetainedEarnings, SubtypeSuspense},
	AccountTypeRevenue:   {SubtypeOperatingRevenue, SubtypeOtherRevenue},
	AccountTypeExpense:   {SubtypeOperatingExpense, SubtypeCostOfGoodsSold, SubtypeOtherExpense},
}

// Valid reports whether t is a known account type.
func (t AccountType) Valid() bool {
	_, ok := subtypes[t]
	return ok
}

// ConventionalNormalBalance derives the normal balance implied by the type.
func (t AccountType) ConventionalNormalBalance() NormalBalance {
	switch t {
	case AccountTypeAsset, AccountTypeExpense:
		return NormalDebit
	default:
		return NormalCredit
	}
}

// DefaultSubtype returns the subtype used when none is given.
func (t AccountType) DefaultSubtype() Subtype {
	list := subtypes[t]
	if len(list) == 0 {
		return ""
	}
	return list[0]
}

// Allows reports whether the subtype belongs to the type.
func (t AccountType) Allows(sub Subtype) bool {
	for _, s := range subtypes[t] {
		if s == sub {
			return true
		}
	}
	return false
}

// Valid reports whether n is DEBIT or CREDIT.
func (n NormalBalance) Valid() bool {
	return n == NormalDebit || n == NormalCredit
}

// Account models a chart of accounts node.
type Account struct {
	ID            int64         `json:"id"`
	Code          string        `json:"code"`
	Name          string        `json:"name"`
	Type          AccountType   `json:"type"`
	Subtype       Subtype       `json:"subtype"`
	NormalBalance NormalBalance `json:"normal_balance"`
	ParentID      *int64        `json:"parent_id,omitempty"`
	IsActive      bool          `json:"is_active"`
	CreatedAt     time.Time     `json:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at"`
}

// Label renders "code name" for logs and reports.
func (a Account) Label() string {
	return fmt.Sprintf("%s %s", a.Code, a.Name)
}

// CreateAccountInput describes a new chart of accounts entry.
type CreateAccountInput struct {
	Code          string
	Name          string
	Type          AccountType
	Subtype       Subtype
	NormalBalance NormalBalance
	ParentID      *int64
}

// Warning surfaces an accepted but unconventional input.
type Warning struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// WarningNormalBalanceMismatch flags a normal balance that differs from the type convention.
const WarningNormalBalanceMismatch = "NORMAL_BALANCE_MISMATCH"

// Node is one level of the chart of accounts tree.
type Node struct {
	Account  Account `json:"account"`
	Children []*Node `json:"children,omitempty"`
}
