package models

import "time"

// VerifyRecord is one verification-code issuance. Rows are only ever
// inserted; the table doubles as the rate-limit ledger.
type VerifyRecord struct {
	ID         string    `json:"id"`
	Identifier string    `json:"identifier"`
	Code       string    `json:"code"`
	IP         string    `json:"ip"`
	CreatedAt  time.Time `json:"created_at"`
}
