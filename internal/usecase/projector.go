package usecase

import (
	"context"
	"time"

	"github.com/finledger/ledger/internal/domain"
	"github.com/finledger/ledger/internal/ports"
)

// CategoryResponse is the live category embedded in a transaction response
type CategoryResponse struct {
	ID        int64               `json:"id"`
	Name      string              `json:"name"`
	Type      domain.CategoryType `json:"type"`
	Icon      *string             `json:"icon"`
	Color     *string             `json:"color"`
	CreatedAt time.Time           `json:"createdAt"`
	UpdatedAt time.Time           `json:"updatedAt"`
}

// TransactionResponse is the caller facing shape of a committed transaction
type TransactionResponse struct {
	ID              int64                  `json:"id"`
	UserID          int64                  `json:"userId"`
	Amount          float64                `json:"amount"`
	Type            domain.TransactionType `json:"type"`
	CategoryID      int64                  `json:"categoryId"`
	TransactionDate string                 `json:"transactionDate"`
	Note            *string                `json:"note"`
	AttachmentURL   *string                `json:"attachmentUrl"`
	Version         int64                  `json:"version"`
	CreatedAt       time.Time              `json:"createdAt"`
	UpdatedAt       time.Time              `json:"updatedAt"`
	Category        CategoryResponse       `json:"category"`
}

// Projector reloads committed transactions joined with their current category.
type Projector struct {
	reader ports.TransactionReader
}

// NewProjector creates a new projector
func NewProjector(reader ports.TransactionReader) *Projector {
	return &Projector{reader: reader}
}

// Project reads the committed transaction id and shapes it for the caller.
func (p *Projector) Project(ctx context.Context, id, userID int64) (*TransactionResponse, error) {
	view, err := p.reader.FindView(ctx, id, userID)
	if err != nil {
		return nil, err
	}
	return ToTransactionResponse(view), nil
}

// ToTransactionResponse converts a joined view into its response shape
func ToTransactionResponse(v *domain.TransactionView) *TransactionResponse {
	return &TransactionResponse{
		ID:              v.ID,
		UserID:          v.UserID,
		Amount:          v.Amount.InexactFloat64(),
		Type:            v.Type,
		CategoryID:      v.CategoryID,
		TransactionDate: domain.FormatDate(v.TransactionDate),
		Note:            v.Note,
		AttachmentURL:   v.AttachmentURL,
		Version:         v.Version,
		CreatedAt:       v.CreatedAt,
		UpdatedAt:       v.UpdatedAt,
		Category: CategoryResponse{
			ID:        v.Category.ID,
			Name:      v.Category.Name,
			Type:      v.Category.Type,
			Icon:      v.Category.Icon,
			Color:     v.Category.Color,
			CreatedAt: v.Category.CreatedAt,
			UpdatedAt: v.Category.UpdatedAt,
		},
	}
}
