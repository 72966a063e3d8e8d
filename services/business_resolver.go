package services

import (
	"errors"

	"github.com/dinetap/dinein-app/models"
	"gorm.io/gorm"
)

// businessTypeProbeOrder mirrors the legacy split of businesses across three
// collections; resolution probes them in this fixed order.
var businessTypeProbeOrder = []string{
	models.BusinessTypeRestaurant,
	models.BusinessTypeShop,
	models.BusinessTypeStreetVendor,
}

// BusinessResolver locates which business type owns a business id.
// Pure lookup, no state.
type BusinessResolver struct {
	DB *gorm.DB
}

func NewBusinessResolver(db *gorm.DB) *BusinessResolver {
	return &BusinessResolver{DB: db}
}

// FindBusinessRef probes the business types in fixed order and returns the
// owning business, or a not_found error when no type claims the id.
func (br *BusinessResolver) FindBusinessRef(tx *gorm.DB, businessID string) (*models.Business, error) {
	if businessID == "" {
		return nil, E(KindInvalidArgument, "business id is required")
	}
	if tx == nil {
		tx = br.DB
	}

	for _, businessType := range businessTypeProbeOrder {
		var business models.Business
		err := tx.Where("business_id = ? AND type = ?", businessID, businessType).First(&business).Error
		if err == nil {
			return &business, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, wrapInternal(err)
		}
	}

	return nil, E(KindNotFound, "business %s not found", businessID)
}
