package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/Dan9191/credit-dashboard/internal/models"
)

// DefaultDepositCurrency is used when a caller does not pick one
const DefaultDepositCurrency = "USDC"

const (
	ethereumAddress = "0x742d35Cc9B2D8B3B8e4a8C6B7A9E3D2F1C0B9A8E"
	ethereumQR      = "data:image/svg+xml;base64,PHN2ZyB3aWR0aD0iMjAwIiBoZWlnaHQ9IjIwMCIgeG1sbnM9Imh0dHA6Ly93d3cudzMub3JnLzIwMDAvc3ZnIj48cmVjdCB3aWR0aD0iMTAwJSIgaGVpZ2h0PSIxMDAlIiBmaWxsPSIjRkZGIi8+PHRleHQgeD0iNTAlIiB5PSI1MCUiIGZvbnQtZmFtaWx5PSJBcmlhbCIgZm9udC1zaXplPSIxNCIgdGV4dC1hbmNob3I9Im1pZGRsZSIgZHk9Ii4zZW0iPkVUSCBRUjwvdGV4dD48L3N2Zz4="
)

var depositAddresses = map[string]models.DepositAddress{
	"USDC": {Address: ethereumAddress, Network: "Ethereum", Currency: "USDC", QRCode: ethereumQR},
	"ETH":  {Address: ethereumAddress, Network: "Ethereum", Currency: "ETH", QRCode: ethereumQR},
	"BTC": {
		Address:  "bc1qxy2kgdygjrsqtzq2n0yrf2493p83kkfjhx0wlh",
		Network:  "Bitcoin",
		Currency: "BTC",
		QRCode:   "data:image/svg+xml;base64,PHN2ZyB3aWR0aD0iMjAwIiBoZWlnaHQ9IjIwMCIgeG1sbnM9Imh0dHA6Ly93d3cudzMub3JnLzIwMDAvc3ZnIj48cmVjdCB3aWR0aD0iMTAwJSIgaGVpZ2h0PSIxMDAlIiBmaWxsPSIjRkZGIi8+PHRleHQgeD0iNTAlIiB5PSI1MCUiIGZvbnQtZmFtaWx5PSJBcmlhbCIgZm9udC1zaXplPSIxNCIgdGV4dC1hbmNob3I9Im1pZGRsZSIgZHk9Ii4zZW0iPkJUQyBRUjwvdGV4dD48L3N2Zz4=",
	},
}

// DepositAddress returns where a payment for loanID can be sent in currency.
// An empty currency means DefaultDepositCurrency.
func (s *Service) DepositAddress(ctx context.Context, loanID, currency string) (models.DepositAddress, error) {
	if _, err := s.GetLoan(ctx, loanID); err != nil {
		return models.DepositAddress{}, err
	}
	currency = strings.ToUpper(strings.TrimSpace(currency))
	if currency == "" {
		currency = DefaultDepositCurrency
	}
	addr, ok := depositAddresses[currency]
	if !ok {
		return models.DepositAddress{}, fmt.Errorf("%w: %s", ErrUnsupportedCurrency, currency)
	}
	return addr, nil
}
