package domain

import (
	"strconv"
	"time"
)

// Reactions — сырые реакции на комментарий: эмодзи -> id пользователей.
type Reactions map[string][]int

// User представляет пользователя форума.
type User struct {
	ID            int        `json:"id" gorm:"primary_key"`
	Nick          string     `json:"nick" gorm:"type:varchar(80);not null;uniqueIndex"`
	Name          string     `json:"name,omitempty" gorm:"type:varchar(255)"`
	Score         int        `json:"-" gorm:"not null;default:0"`
	Anonymous     bool       `json:"-" gorm:"not null;default:false"` // системный анонимный принципал
	Activated     bool       `json:"-" gorm:"not null;default:false"`
	Corrector     bool       `json:"-" gorm:"not null;default:false"`
	Moderator     bool       `json:"-" gorm:"not null;default:false"`
	Administrator bool       `json:"-" gorm:"not null;default:false"`
	FrozenUntil   *time.Time `json:"-"`
	LastLogin     *time.Time `json:"-"`
	Photo         string     `json:"-" gorm:"type:varchar(255)"`
}

// Frozen сообщает, заморожен ли пользователь на данный момент.
func (u *User) Frozen(now time.Time) bool {
	return u.FrozenUntil != nil && u.FrozenUntil.After(now)
}

// TrustedLinks сообщает, можно ли показывать ссылки пользователя без nofollow.
func (u *User) TrustedLinks() bool {
	return u.Score >= 100 || u.Corrector || u.Moderator || u.Administrator
}

// Profile — настройки отображения для просматривающего пользователя.
type Profile struct {
	UserID     int  `json:"-" gorm:"primary_key"`
	ShowPhotos bool `json:"showPhotos" gorm:"not null;default:true"`
	Messages   int  `json:"messages" gorm:"not null;default:50"` // комментариев на страницу
}

// DefaultProfile возвращает профиль для анонимного посетителя.
func DefaultProfile() Profile {
	return Profile{ShowPhotos: true, Messages: 50}
}

// Group представляет раздел форума.
type Group struct {
	ID             int    `json:"id" gorm:"primary_key"`
	Title          string `json:"title" gorm:"type:varchar(255);not null"`
	CommentsClosed bool   `json:"-" gorm:"not null;default:false"`
}

// Topic представляет тему форума.
type Topic struct {
	ID             int        `json:"id" gorm:"primary_key"`
	GroupID        int        `json:"groupId" gorm:"not null;index"`
	AuthorID       int        `json:"authorId" gorm:"not null"`
	Title          string     `json:"title" gorm:"type:varchar(255);not null"`
	PostedAt       time.Time  `json:"postedAt" gorm:"not null;default:now()"`
	ExpiredAt      *time.Time `json:"-"`
	Deleted        bool       `json:"-" gorm:"not null;default:false;index"`
	CommentsClosed bool       `json:"-" gorm:"not null;default:false"`
}

// Expired сообщает, истекла ли тема (комментарии ушли в архив).
func (t *Topic) Expired(now time.Time) bool {
	return t.ExpiredAt != nil && t.ExpiredAt.Before(now)
}

// Link возвращает канонический путь темы.
func (t *Topic) Link() string {
	return "/topic/" + strconv.Itoa(t.ID)
}

// Comment представляет комментарий в теме.
type Comment struct {
	ID          int        `json:"id" gorm:"primary_key"`
	TopicID     int        `json:"topicId" gorm:"not null;index"`
	AuthorID    int        `json:"authorId" gorm:"not null"`
	Title       string     `json:"title,omitempty" gorm:"type:varchar(255)"`
	ReplyTo     int        `json:"replyTo" gorm:"not null;default:0;index"` // 0 = комментарий верхнего уровня
	PostedAt    time.Time  `json:"postedAt" gorm:"not null;default:now()"`
	Deleted     bool       `json:"-" gorm:"not null;default:false;index"`
	EditCount   int        `json:"-" gorm:"not null;default:0"`
	EditorID    int        `json:"-" gorm:"not null;default:0"`
	EditedAt    *time.Time `json:"-"`
	PostIP      string     `json:"-" gorm:"type:varchar(45)"`
	UserAgentID int        `json:"-" gorm:"not null;default:0"`
	Reactions   Reactions  `json:"-" gorm:"type:jsonb;serializer:json"`
}

// MsgText — исходный текст комментария, хранится отдельно от метаданных.
type MsgText struct {
	CommentID int    `json:"commentId" gorm:"primary_key"`
	Text      string `json:"text" gorm:"type:text;not null"`
}

// DeleteInfo — кто и почему удалил комментарий.
type DeleteInfo struct {
	CommentID int       `json:"commentId" gorm:"primary_key"`
	DeleterID int       `json:"deleterId" gorm:"not null"`
	Reason    string    `json:"reason" gorm:"type:varchar(255)"`
	DeletedAt time.Time `json:"deletedAt" gorm:"not null;default:now()"`
}

// Remark — личная заметка одного пользователя о другом.
type Remark struct {
	ID        int    `json:"id" gorm:"primary_key"`
	OwnerID   int    `json:"-" gorm:"not null;index:idx_remark_owner_ref"`
	RefUserID int    `json:"refUserId" gorm:"not null;index:idx_remark_owner_ref"`
	Text      string `json:"text" gorm:"type:varchar(255);not null"`
}

// Warning — модераторская пометка на комментарии.
type Warning struct {
	ID        int       `json:"id" gorm:"primary_key"`
	CommentID int       `json:"commentId" gorm:"not null;index"`
	AuthorID  int       `json:"authorId" gorm:"not null"`
	Message   string    `json:"message" gorm:"type:varchar(255);not null"`
	PostedAt  time.Time `json:"postedAt" gorm:"not null;default:now()"`
}

// IgnoreEntry — запись игнор-листа: owner не хочет видеть ignored.
type IgnoreEntry struct {
	OwnerID   int `json:"-" gorm:"primaryKey;autoIncrement:false"`
	IgnoredID int `json:"-" gorm:"primaryKey;autoIncrement:false"`
}

// UserAgent — справочник строк user-agent, на комментарии хранится только id.
type UserAgent struct {
	ID   int    `json:"id" gorm:"primary_key"`
	Name string `json:"name" gorm:"type:varchar(512);not null"`
}
