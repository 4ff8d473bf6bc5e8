package flood

// Label is the display text for a severity.
type Label struct {
	Severity  Severity `json:"severity"`
	Text      string   `json:"text"`
	Emoji     string   `json:"emoji"`
	IconClass string   `json:"iconClass"`
	CSSClass  string   `json:"cssClass"`
}

var labels = [...]Label{
	Info:    {Severity: Info, Text: "THÔNG TIN", Emoji: "ℹ️", IconClass: "fa-info-circle", CSSClass: "info"},
	Warning: {Severity: Warning, Text: "CẢNH BÁO", Emoji: "⚠️", IconClass: "fa-exclamation-triangle", CSSClass: "warning"},
	Danger:  {Severity: Danger, Text: "NGUY HIỂM", Emoji: "🚨", IconClass: "fa-exclamation-circle", CSSClass: "danger"},
	Extreme: {Severity: Extreme, Text: "KHẨN CẤP", Emoji: "🆘", IconClass: "fa-radiation", CSSClass: "extreme"},
}

// LabelFor returns the label for a severity. Invalid severities get the Info label.
func LabelFor(s Severity) Label {
	if !s.Valid() {
		s = Info
	}
	return labels[s]
}

// Labels returns the full label table, lowest severity first.
func Labels() []Label {
	out := make([]Label, len(labels))
	copy(out, labels[:])
	return out
}

// Headline renders the banner title, e.g. "🚨 NGUY HIỂM".
func (l Label) Headline() string {
	return l.Emoji + " " + l.Text
}

var (
	dangerTips = []string{
		"DI CHUYỂN NGAY đến nơi cao và an toàn",
		"Tắt điện và gas trước khi rời khỏi nhà",
		"Mang theo tài liệu quan trọng và thuốc men cần thiết",
		"KHÔNG đi qua vùng nước chảy xiết",
		"Gọi 113 hoặc 114 nếu cần cứu hộ khẩn cấp",
	}
	warningTips = []string{
		"Theo dõi tin tức thời tiết thường xuyên",
		"Chuẩn bị đồ dùng cần thiết và di chuyển đến nơi an toàn",
		"Không đi qua vùng ngập nước sâu",
		"Liên hệ cơ quan chức năng khi cần hỗ trợ: 113",
		"Chuẩn bị lương thực, nước uống và đèn pin dự phòng",
	}
)

// SafetyTips returns the safety checklist for a severity. Danger and above
// get the evacuation list; everything else gets the preparedness list.
func SafetyTips(s Severity) []string {
	src := warningTips
	if s >= Danger {
		src = dangerTips
	}
	out := make([]string, len(src))
	copy(out, src)
	return out
}
