package models

import "time"

// Message is one recorded notification attempt on any channel. Every
// attempted send gets a row, whether or not the transport ran.
type Message struct {
	ID        string    `json:"id"`
	ToAddr    string    `json:"to_addr"`
	FromAddr  string    `json:"from_addr"`
	Subject   string    `json:"subject,omitempty"` // email only
	Content   string    `json:"content"`
	IsEgress  bool      `json:"is_egress"`
	CreatedAt time.Time `json:"created_at"`
}
