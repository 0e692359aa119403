package model

// PaymentType mirrors the escrow contract's PaymentType enum.
type PaymentType uint8

// Declared order of the deployed contract: OneTime, Milestone, Recurring.
const (
	PaymentOneTime PaymentType = iota
	PaymentMilestone
	PaymentRecurring
	PaymentUnknown PaymentType = 255
)

// Status mirrors the escrow contract's Status enum.
type Status uint8

// Declared order of the deployed contract: Created, Active, Completed, Disputed, Cancelled.
const (
	StatusCreated Status = iota
	StatusActive
	StatusCompleted
	StatusDisputed
	StatusCancelled
	StatusUnknown Status = 255
)

// EnumMember is one row of an enum lookup table.
type EnumMember struct {
	Value uint8
	Name  string
	Label string
}

// PaymentTypeTable lists PaymentType members in contract declaration order.
var PaymentTypeTable = []EnumMember{
	{Value: uint8(PaymentOneTime), Name: "OneTime", Label: "One-time"},
	{Value: uint8(PaymentMilestone), Name: "Milestone", Label: "Milestone"},
	{Value: uint8(PaymentRecurring), Name: "Recurring", Label: "Recurring"},
}

// StatusTable lists Status members in contract declaration order.
var StatusTable = []EnumMember{
	{Value: uint8(StatusCreated), Name: "Created", Label: "Created"},
	{Value: uint8(StatusActive), Name: "Active", Label: "Active"},
	{Value: uint8(StatusCompleted), Name: "Completed", Label: "Completed"},
	{Value: uint8(StatusDisputed), Name: "Disputed", Label: "Disputed"},
	{Value: uint8(StatusCancelled), Name: "Cancelled", Label: "Cancelled"},
}

// PaymentTypeOf maps a raw enum integer, falling back to PaymentUnknown.
func PaymentTypeOf(raw uint8) PaymentType {
	if member, ok := lookup(PaymentTypeTable, raw); ok {
		return PaymentType(member.Value)
	}
	return PaymentUnknown
}

// StatusOf maps a raw enum integer, falling back to StatusUnknown.
func StatusOf(raw uint8) Status {
	if member, ok := lookup(StatusTable, raw); ok {
		return Status(member.Value)
	}
	return StatusUnknown
}

func (p PaymentType) String() string {
	if member, ok := lookup(PaymentTypeTable, uint8(p)); ok {
		return member.Label
	}
	return "Unknown"
}

func (s Status) String() string {
	if member, ok := lookup(StatusTable, uint8(s)); ok {
		return member.Label
	}
	return "Unknown"
}

func lookup(table []EnumMember, raw uint8) (EnumMember, bool) {
	for _, member := range table {
		if member.Value == raw {
			return member, true
		}
	}
	return EnumMember{}, false
}
