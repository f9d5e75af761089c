package repo

import (
	"context"
	"errors"
	"fmt"

	"github.com/bookstore/services/market/internal/db"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	// ErrUserNotFound is returned when no user has the requested username
	ErrUserNotFound = errors.New("user not found")

	// ErrUserAlreadyExists is returned when the username or email is taken
	ErrUserAlreadyExists = errors.New("user already exists")

	// ErrItemNotFound is returned when an item is not found
	ErrItemNotFound = errors.New("item not found")

	// ErrItemAlreadyExists is returned when a barcode is already listed
	ErrItemAlreadyExists = errors.New("item already exists")
)

// MarketRepository handles user and item persistence
type MarketRepository struct {
	db  *db.DB
	log *zap.Logger
}

// NewMarketRepository creates a new market repository
func NewMarketRepository(database *db.DB, logger *zap.Logger) *MarketRepository {
	return &MarketRepository{
		db:  database,
		log: logger,
	}
}

// CreateUsers inserts users in a single commit.
func (r *MarketRepository) CreateUsers(ctx context.Context, users ...*db.User) error {
	if len(users) == 0 {
		return nil
	}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, u := range users {
			var count int64
			if err := tx.Model(&db.User{}).
				Where("username = ? OR email_address = ?", u.Username, u.EmailAddress).
				Count(&count).Error; err != nil {
				return fmt.Errorf("failed to check user existence: %w", err)
			}
			if count > 0 {
				return fmt.Errorf("%w: %s", ErrUserAlreadyExists, u.Username)
			}
		}
		return tx.Create(users).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			err = fmt.Errorf("%w: %v", ErrUserAlreadyExists, err)
		}
		r.log.Error("Failed to create users", zap.Int("count", len(users)), zap.Error(err))
		return err
	}

	for _, u := range users {
		r.log.Info("User created", zap.String("username", u.Username))
	}
	return nil
}

// ListUsers returns every user ordered by id.
func (r *MarketRepository) ListUsers(ctx context.Context) ([]*db.User, error) {
	var users []*db.User
	if err := r.db.WithContext(ctx).Order("id").Find(&users).Error; err != nil {
		r.log.Error("Failed to list users", zap.Error(err))
		return nil, err
	}
	return users, nil
}

// GetUserByUsername retrieves a user by username
func (r *MarketRepository) GetUserByUsername(ctx context.Context, username string) (*db.User, error) {
	var user db.User
	err := r.db.WithContext(ctx).Where("username = ?", username).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		r.log.Error("Failed to get user", zap.String("username", username), zap.Error(err))
		return nil, err
	}
	return &user, nil
}

// CreateItems inserts items in a single commit.
func (r *MarketRepository) CreateItems(ctx context.Context, items ...*db.Item) error {
	if len(items) == 0 {
		return nil
	}

	barcodes := make([]string, len(items))
	for i, item := range items {
		barcodes[i] = item.Barcode
	}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&db.Item{}).Where("barcode IN ?", barcodes).Count(&count).Error; err != nil {
			return fmt.Errorf("failed to check item existence: %w", err)
		}
		if count > 0 {
			return ErrItemAlreadyExists
		}
		return tx.Create(items).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			err = fmt.Errorf("%w: %v", ErrItemAlreadyExists, err)
		}
		r.log.Error("Failed to create items", zap.Strings("barcodes", barcodes), zap.Error(err))
		return err
	}

	r.log.Info("Items created", zap.Strings("barcodes", barcodes))
	return nil
}

// ListItems returns every item ordered by id.
func (r *MarketRepository) ListItems(ctx context.Context) ([]*db.Item, error) {
	var items []*db.Item
	if err := r.db.WithContext(ctx).Order("id").Find(&items).Error; err != nil {
		r.log.Error("Failed to list items", zap.Error(err))
		return nil, err
	}
	return items, nil
}

// FindItemsByName returns all items called name; names are not unique.
func (r *MarketRepository) FindItemsByName(ctx context.Context, name string) ([]*db.Item, error) {
	var items []*db.Item
	if err := r.db.WithContext(ctx).Where("name = ?", name).Order("id").Find(&items).Error; err != nil {
		r.log.Error("Failed to find items", zap.String("name", name), zap.Error(err))
		return nil, err
	}
	return items, nil
}

// GetItemByBarcode retrieves an item by barcode
func (r *MarketRepository) GetItemByBarcode(ctx context.Context, barcode string) (*db.Item, error) {
	var item db.Item
	err := r.db.WithContext(ctx).Where("barcode = ?", barcode).First(&item).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrItemNotFound
		}
		r.log.Error("Failed to get item", zap.String("barcode", barcode), zap.Error(err))
		return nil, err
	}
	return &item, nil
}

// AssignOwner makes username the owner of item and commits. item must
// already be persisted. The user is resolved first so a missing user yields
// ErrUserNotFound and leaves item untouched.
func (r *MarketRepository) AssignOwner(ctx context.Context, item *db.Item, username string) error {
	user, err := r.GetUserByUsername(ctx, username)
	if err != nil {
		return err
	}

	result := r.db.WithContext(ctx).Model(&db.Item{}).Where("id = ?", item.ID).Update("owner", user.Username)
	if result.Error != nil {
		r.log.Error("Failed to assign owner",
			zap.String("barcode", item.Barcode),
			zap.String("owner", user.Username),
			zap.Error(result.Error),
		)
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrItemNotFound
	}

	item.SetOwner(user.Username)
	r.log.Info("Owner assigned", zap.String("barcode", item.Barcode), zap.String("owner", user.Username))
	return nil
}

// GetStats returns row counts for metrics
func (r *MarketRepository) GetStats(ctx context.Context) (users, items, owned int64, err error) {
	if err := r.db.WithContext(ctx).Model(&db.User{}).Count(&users).Error; err != nil {
		return 0, 0, 0, fmt.Errorf("failed to count users: %w", err)
	}

	if err := r.db.WithContext(ctx).Model(&db.Item{}).Count(&items).Error; err != nil {
		return 0, 0, 0, fmt.Errorf("failed to count items: %w", err)
	}

	if err := r.db.WithContext(ctx).Model(&db.Item{}).Where("owner IS NOT NULL").Count(&owned).Error; err != nil {
		return 0, 0, 0, fmt.Errorf("failed to count owned items: %w", err)
	}

	return users, items, owned, nil
}
