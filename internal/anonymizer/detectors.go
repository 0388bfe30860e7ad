package anonymizer

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"
)

// 检测步骤，数值越小优先级越高
const (
	stepHonorificName = iota + 1
	stepGuestID
	stepBooking
	stepContact
	stepDateTime
	stepRecognizer
	stepResidual
)

// kind 用于日期、时间的保留开关
type kind int

const (
	kindAlways kind = iota
	kindDate
	kindTime
)

// detector 一条检测规则：正则、被替换的分组、可选的边界修正与校验
type detector struct {
	category Category
	step     int
	kind     kind
	re       *regexp.Regexp
	group    int
	adjust   func(text string, start, end int) (int, int, bool)
}

var (
	placeholderToken = regexp.MustCompile(`\[[A-Z_]+\]`)
	residualRun      = regexp.MustCompile(`\b[A-Z][a-z]{2,}(?:[ \t]+[A-Z][a-z]{2,})+\b`)
	wordInRun        = regexp.MustCompile(`[A-Z][a-z]+`)
	hashLabelPrefix  = regexp.MustCompile(`(?i)\b(?:room|rm|suite|floor|apt|unit|id)[ \t]*[:]?[ \t]*$`)
	roomLabelPrefix  = regexp.MustCompile(`(?i)\b(?:room|rm|suite)[ \t]*(?:no\.?|number|#)?[ \t]*:?[ \t]*$`)
	isoDateShape     = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
	dmyDateShape     = regexp.MustCompile(`^\d{1,2}[/\-]\d{1,2}[/\-]\d{2,4}$`)
)

var detectors = []detector{
	{
		category: CategoryClientName,
		step:     stepHonorificName,
		re:       regexp.MustCompile(`\b(?:Mr|Mrs|Ms|Dr|Prof)\.[ \t]+[A-Z][a-z]+(?:[ \t]+[A-Z][a-z]+)+`),
		adjust:   trimHonorificName,
	},
	{
		category: CategoryGuestID,
		step:     stepGuestID,
		re:       regexp.MustCompile(`\b(?:Guest|Customer|Client)[ \t]*ID[ \t]*[#:]?[ \t]*(\d+)\b`),
		group:    1,
	},
	{
		category: CategoryReservation,
		step:     stepBooking,
		re:       regexp.MustCompile(`\b(?:Reservation|Booking)[ \t]*ID[ \t]*[#:]?[ \t]*(\d+)\b`),
		group:    1,
	},
	{
		category: CategoryBooking,
		step:     stepBooking,
		re:       regexp.MustCompile(`(?:\b(?:REF|Booking|Reservation|Confirmation)[ \t]*[:\-]?[ \t]*#?|#)\d+[A-Za-z0-9]*\b`),
		adjust:   rejectLabelledHash,
	},
	{
		category: CategoryEmail,
		step:     stepContact,
		re:       regexp.MustCompile(`\b[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}\b`),
	},
	{
		category: CategoryURL,
		step:     stepContact,
		re:       regexp.MustCompile(`https?://[^\s"'<>]+`),
		adjust:   trimURL,
	},
	{
		category: CategoryCreditCard,
		step:     stepContact,
		re:       regexp.MustCompile(`\b\d{4}[ \-]?\d{4}[ \-]?\d{4}[ \-]?\d{4}\b`),
		adjust:   validateCard,
	},
	{
		category: CategoryIPAddress,
		step:     stepContact,
		re:       regexp.MustCompile(`\b(?:\d{1,3}\.){3}\d{1,3}\b`),
		adjust:   validateIPv4,
	},
	{
		category: CategoryPhone,
		step:     stepContact,
		re:       regexp.MustCompile(`(?:\+\d{1,3}[ \-]?)?(?:\(\d{1,4}\)[ \-]?)?\d(?:[ \-]?\d){5,}`),
		adjust:   validatePhone,
	},
	{
		category: CategoryDate,
		step:     stepDateTime,
		kind:     kindDate,
		re:       regexp.MustCompile(`\b\d{1,2}[/\-]\d{1,2}[/\-]\d{2,4}\b`),
	},
	{
		category: CategoryDate,
		step:     stepDateTime,
		kind:     kindDate,
		re:       regexp.MustCompile(`\b\d{4}-\d{2}-\d{2}\b`),
	},
	{
		category: CategoryTime,
		step:     stepDateTime,
		kind:     kindTime,
		re:       regexp.MustCompile(`\b\d{1,2}:\d{2}(?::\d{2})?(?:[ \t]*(?:AM|PM|am|pm))?\b`),
	},
}

// trimHonorificName 去掉名字末尾落入保留列表的词，至少保留名与姓
func trimHonorificName(text string, start, end int) (int, int, bool) {
	match := text[start:end]
	dot := strings.Index(match, ".")
	words := wordInRun.FindAllStringIndex(match[dot+1:], -1)

	kept := 0
	for _, w := range words {
		if isExcludedWord(match[dot+1+w[0] : dot+1+w[1]]) {
			break
		}
		kept++
	}
	if kept < 2 {
		return 0, 0, false
	}
	return start, start + dot + 1 + words[kept-1][1], true
}

// rejectLabelledHash 裸 # 编号紧跟在房间类词或 ID 标签之后时不是预订号
func rejectLabelledHash(text string, start, end int) (int, int, bool) {
	if text[start] == '#' && hashLabelPrefix.MatchString(text[:start]) {
		return 0, 0, false
	}
	return start, end, true
}

func trimURL(text string, start, end int) (int, int, bool) {
	trimmed := strings.TrimRight(text[start:end], ".,;:!?)]}")
	if len(trimmed) <= len("https://") {
		return 0, 0, false
	}
	return start, start + len(trimmed), true
}

func validateCard(text string, start, end int) (int, int, bool) {
	return start, end, validateLuhn(digitsOnly(text[start:end]))
}

func validateIPv4(text string, start, end int) (int, int, bool) {
	for _, part := range strings.Split(text[start:end], ".") {
		n, err := strconv.Atoi(part)
		if err != nil || n > 255 {
			return 0, 0, false
		}
	}
	return start, end, true
}

// validatePhone 7 到 15 位数字，不能是日期形状，也不能是更长字母数字串的一部分
// 开头的数字串属于相邻的字母数字串或房间号时，从片段内下一个数字串重新判断
func validatePhone(text string, start, end int) (int, int, bool) {
	if start > 0 && (isWordByte(text[start-1]) || roomLabelPrefix.MatchString(text[:start])) {
		next := nextDigitRun(text, start, end)
		if next < 0 {
			return 0, 0, false
		}
		return validatePhone(text, next, end)
	}

	candidate := text[start:end]
	n := len(digitsOnly(candidate))
	if n < 7 || n > 15 {
		return 0, 0, false
	}
	if dmyDateShape.MatchString(candidate) || isoDateShape.MatchString(candidate) {
		return 0, 0, false
	}
	if end < len(text) {
		next := text[end]
		if next == '/' || next == ':' || (next != '.' && isWordByte(next)) {
			return 0, 0, false
		}
		if next == '.' && end+1 < len(text) && isWordByte(text[end+1]) {
			return 0, 0, false
		}
	}
	return start, end, true
}

// validateLuhn Luhn 校验，用于银行卡号
func validateLuhn(s string) bool {
	if len(s) == 0 {
		return false
	}
	var sum int
	parity := len(s) % 2
	for i := 0; i < len(s); i++ {
		d := int(s[i] - '0')
		if d < 0 || d > 9 {
			return false
		}
		if i%2 == parity {
			d *= 2
			if d > 9 {
				d -= 9
			}
		}
		sum += d
	}
	return sum%10 == 0
}

func digitsOnly(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsDigit(r) {
			return r
		}
		return -1
	}, s)
}

// nextDigitRun 返回 (start, end) 内下一个数字串的起点，没有时返回 -1
func nextDigitRun(text string, start, end int) int {
	for i := start + 1; i < end; i++ {
		if isDigitByte(text[i]) && !isDigitByte(text[i-1]) {
			return i
		}
	}
	return -1
}

func isDigitByte(b byte) bool {
	return b >= '0' && b <= '9'
}

func isWordByte(b byte) bool {
	return b == '_' || b == '.' || (b >= '0' && b <= '9') || (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}
