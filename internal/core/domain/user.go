package domain

import "time"

type UserStatus string

const (
	StatusOnline  UserStatus = "online"
	StatusOffline UserStatus = "offline"
)

type User struct {
	ID       UserID     `json:"user_id"`
	Username string     `json:"username"`
	Status   UserStatus `json:"status"`
	LastSeen time.Time  `json:"last_seen"`
	Contacts []UserID   `json:"contacts"`
}

func (u User) HasContact(id UserID) bool {
	for _, c := range u.Contacts {
		if c == id {
			return true
		}
	}
	return false
}
