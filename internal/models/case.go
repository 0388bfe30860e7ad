package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// UntitledCase 无法推导标题时使用的占位标题
const UntitledCase = "Untitled Case"

// CaseRecord 从报告中提取出的结构化案例
// 除 Title 外的字段均可能缺失，序列化时输出 null
type CaseRecord struct {
	Room            *string `json:"room"`
	Status          *string `json:"status"`
	Importance      *string `json:"importance"`
	Type            *string `json:"type"`
	Title           string  `json:"title" validate:"required"`
	Action          *string `json:"action"`
	Guest           *string `json:"guest"`
	Created         *string `json:"created"`
	CreatedBy       *string `json:"created_by"`
	Modified        *string `json:"modified"`
	ModifiedBy      *string `json:"modified_by"`
	Source          *string `json:"source"`
	Membership      *string `json:"membership"`
	CaseDescription *string `json:"case_description"`
	InOut           *string `json:"in_out"`
}

// CaseFieldNames 案例记录的全部字段名，顺序与导出列一致
var CaseFieldNames = []string{
	"room", "status", "importance", "type", "title", "action", "guest",
	"created", "created_by", "modified", "modified_by", "source",
	"membership", "case_description", "in_out",
}

// Values 按 CaseFieldNames 的顺序返回字段值，缺失字段为空字符串
func (r CaseRecord) Values() []string {
	return []string{
		deref(r.Room), deref(r.Status), deref(r.Importance), deref(r.Type), r.Title,
		deref(r.Action), deref(r.Guest), deref(r.Created), deref(r.CreatedBy),
		deref(r.Modified), deref(r.ModifiedBy), deref(r.Source), deref(r.Membership),
		deref(r.CaseDescription), deref(r.InOut),
	}
}

// StringPtr 返回字符串指针，空串返回 nil
func StringPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func deref(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

// Case 持久化的案例记录
type Case struct {
	ID              string    `gorm:"primaryKey;size:36"`     // 案例ID
	DocumentID      string    `gorm:"not null;index;size:36"` // 所属报告ID
	Position        int       `gorm:"not null"`               // 在报告中的顺序
	Room            *string   `gorm:"size:20;index"`
	Status          *string   `gorm:"size:50;index"`
	Importance      *string   `gorm:"size:50"`
	Type            *string   `gorm:"size:100"`
	Title           string    `gorm:"not null"`
	Action          *string   `gorm:"type:text"`
	Guest           *string   `gorm:"size:255"`
	Created         *string   `gorm:"size:100"`
	CreatedBy       *string   `gorm:"size:255"`
	Modified        *string   `gorm:"size:100"`
	ModifiedBy      *string   `gorm:"size:255"`
	Source          *string   `gorm:"size:255"`
	Membership      *string   `gorm:"size:255"`
	CaseDescription *string   `gorm:"type:text"`
	InOut           *string   `gorm:"size:100"`
	CreatedAt       time.Time `gorm:"not null"`
	UpdatedAt       time.Time `gorm:"not null"`
}

// BeforeCreate 创建前补齐ID与时间
func (c *Case) BeforeCreate(tx *gorm.DB) (err error) {
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	now := time.Now()
	c.CreatedAt = now
	c.UpdatedAt = now
	return nil
}

// BeforeUpdate 更新前刷新更新时间
func (c *Case) BeforeUpdate(tx *gorm.DB) (err error) {
	c.UpdatedAt = time.Now()
	return nil
}

// TableName 明确指定表名
func (Case) TableName() string {
	return "cases"
}

// NewCaseFromRecord 由解析结果构造持久化模型
func NewCaseFromRecord(documentID string, position int, r CaseRecord) *Case {
	return &Case{
		DocumentID:      documentID,
		Position:        position,
		Room:            r.Room,
		Status:          r.Status,
		Importance:      r.Importance,
		Type:            r.Type,
		Title:           r.Title,
		Action:          r.Action,
		Guest:           r.Guest,
		Created:         r.Created,
		CreatedBy:       r.CreatedBy,
		Modified:        r.Modified,
		ModifiedBy:      r.ModifiedBy,
		Source:          r.Source,
		Membership:      r.Membership,
		CaseDescription: r.CaseDescription,
		InOut:           r.InOut,
	}
}

// ToRecord 转换回接口层使用的案例记录
func (c *Case) ToRecord() CaseRecord {
	return CaseRecord{
		Room:            c.Room,
		Status:          c.Status,
		Importance:      c.Importance,
		Type:            c.Type,
		Title:           c.Title,
		Action:          c.Action,
		Guest:           c.Guest,
		Created:         c.Created,
		CreatedBy:       c.CreatedBy,
		Modified:        c.Modified,
		ModifiedBy:      c.ModifiedBy,
		Source:          c.Source,
		Membership:      c.Membership,
		CaseDescription: c.CaseDescription,
		InOut:           c.InOut,
	}
}
