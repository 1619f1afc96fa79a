package model

// UserRole 由认证服务写入 token，本服务只读取
type UserRole string

const (
	Student UserRole = "student"
	Admin   UserRole = "admin"
)
