package models

type SupportRequest struct {
	Name    string `json:"name" binding:"required"`
	Email   string `json:"email" binding:"required,email"`
	OrderID string `json:"orderId"`
	Subject string `json:"subject" binding:"required"`
	Message string `json:"message" binding:"required"`
}
