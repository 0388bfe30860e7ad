package anonymizer

// Category 敏感信息类别及其占位符
type Category struct {
	Name        string `json:"name"`
	Placeholder string `json:"placeholder"`
	Description string `json:"description"`
}

var (
	CategoryClientName  = Category{"client_name", "[CLIENT_NAME]", "Person names, with or without honorific"}
	CategoryGuestID     = Category{"guest_id", "[GUEST_ID]", "Guest, customer or client identifiers"}
	CategoryBooking     = Category{"booking_reference", "[BOOKING_REFERENCE]", "Booking, REF and confirmation references"}
	CategoryReservation = Category{"reservation_id", "[RESERVATION_ID]", "Reservation or booking ID numbers"}
	CategoryEmail       = Category{"email", "[EMAIL]", "Email addresses"}
	CategoryURL         = Category{"url", "[URL]", "Web links"}
	CategoryCreditCard  = Category{"credit_card", "[CREDIT_CARD]", "Payment card numbers passing the Luhn check"}
	CategoryIPAddress   = Category{"ip_address", "[IP_ADDRESS]", "IPv4 addresses"}
	CategoryPhone       = Category{"phone", "[PHONE]", "Phone numbers with 7 to 15 digits"}
	CategoryDate        = Category{"date", "[DATE]", "Calendar dates"}
	CategoryTime        = Category{"time", "[TIME]", "Clock times"}
)

// Categories 所有类别，按检测优先级排列
var Categories = []Category{
	CategoryClientName,
	CategoryGuestID,
	CategoryBooking,
	CategoryReservation,
	CategoryEmail,
	CategoryURL,
	CategoryCreditCard,
	CategoryIPAddress,
	CategoryPhone,
	CategoryDate,
	CategoryTime,
}

// PatternInfo 对外展示的检测规则
type PatternInfo struct {
	Category    string `json:"category"`
	Placeholder string `json:"placeholder"`
	Description string `json:"description"`
	Pattern     string `json:"pattern,omitempty"`
}

// Patterns 列出所有检测规则
func Patterns() []PatternInfo {
	infos := make([]PatternInfo, 0, len(detectors)+2)
	for _, d := range detectors {
		info := PatternInfo{
			Category:    d.category.Name,
			Placeholder: d.category.Placeholder,
			Description: d.category.Description,
		}
		if d.re != nil {
			info.Pattern = d.re.String()
		}
		infos = append(infos, info)
	}
	infos = append(infos,
		PatternInfo{
			Category:    CategoryClientName.Name,
			Placeholder: CategoryClientName.Placeholder,
			Description: "Person names found by the entity recognizer",
		},
		PatternInfo{
			Category:    CategoryClientName.Name,
			Placeholder: CategoryClientName.Placeholder,
			Description: "Runs of two or more capitalized words outside the preserve list",
			Pattern:     residualRun.String(),
		},
	)
	return infos
}

// placeholderCategory 根据占位符查找类别
func placeholderCategory(token string) (Category, bool) {
	for _, c := range Categories {
		if c.Placeholder == token {
			return c, true
		}
	}
	return Category{}, false
}
