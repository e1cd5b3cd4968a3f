package models

// DepositAddress represents where an external crypto payment can be sent
type DepositAddress struct {
	Address  string `json:"address"`
	Network  string `json:"network"`
	Currency string `json:"currency"`
	QRCode   string `json:"qr_code"`
}
