package model

// UserStatus 用户状态枚举
type UserStatus string

const (
	UserStatusActive   UserStatus = "active"   // 正常使用
	UserStatusInactive UserStatus = "inactive" // 已停用
)

// User 用户模型，被守护人（checker）和守护人（supporter）都是 User
type User struct {
	BaseModel
	PublicID    int64      `gorm:"uniqueIndex;not null" json:"public_id"`
	DisplayName string     `gorm:"type:varchar(64);not null;default:''" json:"display_name"`
	PhoneCipher []byte     `json:"-"`                                  // 手机号密文，不对外暴露
	PhoneHash   *string    `gorm:"uniqueIndex;type:char(64)" json:"-"` // 手机号哈希，用于查询
	Email       string     `gorm:"type:varchar(255);not null;default:''" json:"email"`
	PushToken   string     `gorm:"type:varchar(255);not null;default:''" json:"-"` // 推送网关设备标识
	Status      UserStatus `gorm:"type:varchar(16);not null;default:'active';index:idx_users_status" json:"status"`
	Timezone    string     `gorm:"type:varchar(64);not null;default:'America/New_York'" json:"timezone"`
}

// TableName 指定表名
func (User) TableName() string {
	return "users"
}
