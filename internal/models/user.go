package models

// User is an account. AvatarPath is a file name relative to the avatar directory.
type User struct {
	ID          int    `db:"id" json:"id"`
	Username    string `db:"username" json:"username"`
	DisplayName string `db:"display_name" json:"display_name"`
	AvatarPath  string `db:"avatar_path" json:"avatar_path,omitempty"`
}
