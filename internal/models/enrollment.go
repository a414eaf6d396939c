package models

import "time"

// OCREnrollmentJob is the payload handed to the background queue when a
// scanned class list is submitted for OCR-based enrollment. This side only
// enqueues; processing happens in a downstream consumer.
type OCREnrollmentJob struct {
	ImageData   []byte    `json:"-"`
	ClassroomID string    `json:"classroom_id"`
	SchoolID    string    `json:"school_id"`
	RequestedBy string    `json:"requested_by"`
	ReceivedAt  time.Time `json:"received_at"`
}
