package models

import "time"

// UsersCollection is the store collection holding one UserDocument per user.
const UsersCollection = "users"

// UserDocument is the stored form of everything a signed-in session owns.
// Profile fields are inlined at the top level so partial updates can address
// them individually.
type UserDocument struct {
	Profile
	UID           string        `json:"uid"`
	DailyLogs     []DailyLog    `json:"dailyLogs"`
	WeightEntries []WeightEntry `json:"weightEntries"`
	LastUpdated   time.Time     `json:"lastUpdated"`
}
