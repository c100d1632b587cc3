package types

import "time"

// ErrorMessage 所有 JSON 错误响应的统一结构
type ErrorMessage struct {
	Error   string  `json:"error"`
	Details *string `json:"details,omitempty"`
}

type Credentials struct {
	Email    string `json:"email" validate:"required,email,max=254"`
	Password string `json:"password" validate:"required,min=6,max=72"`
}

type UserInfo struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

type SessionToken struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	ExpiresIn   int64     `json:"expires_in"` // 秒
	ExpiresAt   time.Time `json:"expires_at"`
	User        UserInfo  `json:"user"`
}

type RoleInfo struct {
	UserID string `json:"user_id"`
	Role   string `json:"role"`
}

type SignedAccessRequest struct {
	FilePath string  `json:"filePath"`
	Bucket   *string `json:"bucket,omitempty"`
	Download *bool   `json:"download,omitempty"`
}

type SignedAccessResponse struct {
	SignedURL string `json:"signedUrl"`
}

type ObjectInfo struct {
	Bucket      string    `json:"bucket"`
	Path        string    `json:"path"`
	ContentType string    `json:"contentType"`
	Size        int64     `json:"size"`
	CreatedAt   time.Time `json:"createdAt,omitempty"`
}

type ObjectListResponse struct {
	Limit   int          `json:"limit"`
	PageMax int64        `json:"pageMax"`
	List    []ObjectInfo `json:"list"`
}
