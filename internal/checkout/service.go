package checkout

import (
	"context"
	"sort"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/craftora/marketplace-backend/internal/cart"
	"github.com/craftora/marketplace-backend/internal/catalog"
	"github.com/craftora/marketplace-backend/internal/orders"
	"github.com/craftora/marketplace-backend/pkg/config"
	"github.com/craftora/marketplace-backend/pkg/db"
	"github.com/craftora/marketplace-backend/pkg/db/models"
	"github.com/craftora/marketplace-backend/pkg/enums"
	pkgerrors "github.com/craftora/marketplace-backend/pkg/errors"
	"github.com/craftora/marketplace-backend/pkg/logger"
	"github.com/craftora/marketplace-backend/pkg/types"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// ItemInput is one checkout line.
type ItemInput struct {
	ProductID     uuid.UUID `json:"productId" validate:"required"`
	Quantity      int       `json:"quantity" validate:"required,gt=0"`
	Customization string    `json:"customization,omitempty" validate:"omitempty,max=500"`
}

// Input is the checkout request after validation. An empty item list means
// "check out my cart": the lines are loaded from the customer's stored cart.
type Input struct {
	Items           []ItemInput    `json:"items" validate:"omitempty,dive"`
	ShippingAddress types.Address  `json:"shippingAddress" validate:"required"`
	BillingAddress  *types.Address `json:"billingAddress,omitempty"`
}

type shortfall struct {
	ProductID uuid.UUID `json:"productId"`
	Requested int       `json:"requested"`
	Available int       `json:"available"`
}

// Service creates orders. The order write, every stock decrement, and the
// cart clear run inside one transaction, so a failure at any step leaves no
// partial order and no lost stock.
type Service struct {
	tx            txRunner
	ordersRepo    orders.Repository
	catalogRepo   catalog.Repository
	cartRepo      cart.Repository
	defaultRate   decimal.Decimal
	shippingCents int
	taxRate       decimal.Decimal
	logg          *logger.Logger
}

func NewService(
	tx txRunner,
	ordersRepo orders.Repository,
	catalogRepo catalog.Repository,
	cartRepo cart.Repository,
	cfg config.CheckoutConfig,
	logg *logger.Logger,
) (*Service, error) {
	defaultRate, err := decimal.NewFromString(cfg.DefaultCommissionRate)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "invalid default commission rate")
	}
	taxRate, err := decimal.NewFromString(cfg.TaxRate)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "invalid tax rate")
	}
	return &Service{
		tx:            tx,
		ordersRepo:    ordersRepo,
		catalogRepo:   catalogRepo,
		cartRepo:      cartRepo,
		defaultRate:   defaultRate,
		shippingCents: cfg.ShippingFlatCents,
		taxRate:       taxRate,
		logg:          logg,
	}, nil
}

// CreateOrder runs the full checkout for one customer.
func (s *Service) CreateOrder(ctx context.Context, customerID uuid.UUID, input Input) (*orders.OrderDTO, error) {
	items := input.Items
	if len(items) == 0 {
		cartItems, err := s.cartRepo.FindByCustomer(ctx, customerID)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading cart")
		}
		if len(cartItems) == 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart is empty")
		}
		items = make([]ItemInput, 0, len(cartItems))
		for _, ci := range cartItems {
			line := ItemInput{ProductID: ci.ProductID, Quantity: ci.Qty}
			if ci.Customization != nil {
				line.Customization = *ci.Customization
			}
			items = append(items, line)
		}
	}

	merged, err := mergeItems(items)
	if err != nil {
		return nil, err
	}

	// Lines with differing customization stay distinct, so the stock math
	// works on per-product totals.
	qtyByProduct := make(map[uuid.UUID]int)
	productIDs := make([]uuid.UUID, 0, len(merged))
	for _, item := range merged {
		if _, seen := qtyByProduct[item.ProductID]; !seen {
			productIDs = append(productIDs, item.ProductID)
		}
		qtyByProduct[item.ProductID] += item.Quantity
	}

	products, err := s.catalogRepo.FindActiveByIDs(ctx, productIDs)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading products")
	}
	if len(products) < len(productIDs) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unavailable products").
			WithDetails(map[string]any{"missing": missingIDs(productIDs, products)})
	}
	byID := make(map[uuid.UUID]models.Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}

	// Collect every shortfall before failing; callers fix their cart once.
	var shortfalls []shortfall
	for _, id := range productIDs {
		p := byID[id]
		if qtyByProduct[id] > p.Stock {
			shortfalls = append(shortfalls, shortfall{
				ProductID: p.ID,
				Requested: qtyByProduct[id],
				Available: p.Stock,
			})
		}
	}
	if len(shortfalls) > 0 {
		return nil, pkgerrors.New(pkgerrors.CodeInsufficientStock, "insufficient stock").
			WithDetails(map[string]any{"shortfalls": shortfalls})
	}

	order := s.buildOrder(customerID, merged, byID, input)

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		ordersRepo := s.ordersRepo.WithTx(tx)
		catalogRepo := s.catalogRepo.WithTx(tx)
		cartRepo := s.cartRepo.WithTx(tx)

		if err := ordersRepo.Create(ctx, order); err != nil {
			// Order numbers carry a random suffix; a collision is rare
			// enough that one re-mint covers it.
			if db.IsUniqueViolation(err, "order_number") {
				order.OrderNumber = orders.NewOrderNumber()
				err = ordersRepo.Create(ctx, order)
			}
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persisting order")
			}
		}
		for _, id := range productIDs {
			if err := catalogRepo.DecrementStock(ctx, id, qtyByProduct[id]); err != nil {
				return err
			}
		}
		return cartRepo.Clear(ctx, customerID)
	})
	if err != nil {
		return nil, err
	}

	ctx = s.logg.WithFields(ctx, map[string]any{
		"order_id":     order.ID.String(),
		"order_number": order.OrderNumber,
		"total_cents":  order.TotalCents,
	})
	s.logg.Info(ctx, "order created")

	dto := orders.ToOrderDTO(*order)
	return &dto, nil
}

// buildOrder partitions items by vendor and computes the money fields. The
// vendor ordering is made deterministic so summary arithmetic is reproducible.
func (s *Service) buildOrder(customerID uuid.UUID, items []ItemInput, byID map[uuid.UUID]models.Product, input Input) *models.Order {
	groups := make(map[uuid.UUID][]ItemInput)
	for _, item := range items {
		vendorID := byID[item.ProductID].VendorID
		groups[vendorID] = append(groups[vendorID], item)
	}

	vendorIDs := make([]uuid.UUID, 0, len(groups))
	for vendorID := range groups {
		vendorIDs = append(vendorIDs, vendorID)
	}
	sort.Slice(vendorIDs, func(i, j int) bool { return vendorIDs[i].String() < vendorIDs[j].String() })

	var (
		vendorOrders    []models.VendorOrder
		subtotalCents   int
		commissionCents int
	)
	for _, vendorID := range vendorIDs {
		var (
			voSubtotal int
			voItems    []models.OrderItem
			rate       = s.defaultRate
		)
		for _, item := range groups[vendorID] {
			p := byID[item.ProductID]
			if p.CommissionRate != nil {
				rate = *p.CommissionRate
			}
			var customization *string
			if item.Customization != "" {
				value := item.Customization
				customization = &value
			}
			voSubtotal += p.PriceCents * item.Quantity
			voItems = append(voItems, models.OrderItem{
				ProductID:      p.ID,
				Name:           p.Name,
				ImageURL:       p.ImageURL,
				UnitPriceCents: p.PriceCents,
				Qty:            item.Quantity,
				Customization:  customization,
			})
		}

		voCommission := int(rate.Mul(decimal.NewFromInt(int64(voSubtotal))).Round(0).IntPart())
		vendorOrders = append(vendorOrders, models.VendorOrder{
			VendorID:            vendorID,
			SubtotalCents:       voSubtotal,
			CommissionRate:      rate,
			CommissionCents:     voCommission,
			VendorEarningsCents: voSubtotal - voCommission,
			Status:              enums.VendorOrderStatusPending,
			Items:               voItems,
		})

		subtotalCents += voSubtotal
		commissionCents += voCommission
	}

	taxCents := int(s.taxRate.Mul(decimal.NewFromInt(int64(subtotalCents))).Round(0).IntPart())

	shipping := input.ShippingAddress
	shipping.Normalize()
	billing := input.BillingAddress
	if billing != nil {
		billing.Normalize()
	}

	return &models.Order{
		OrderNumber:          orders.NewOrderNumber(),
		CustomerID:           customerID,
		ShippingAddress:      shipping,
		BillingAddress:       billing,
		PaymentMethod:        enums.PaymentMethodCard,
		PaymentStatus:        enums.PaymentStatusPending,
		SubtotalCents:        subtotalCents,
		ShippingTotalCents:   s.shippingCents,
		TaxCents:             taxCents,
		TotalCents:           subtotalCents + s.shippingCents + taxCents,
		TotalCommissionCents: commissionCents,
		Status:               enums.OrderStatusPending,
		VendorOrders:         vendorOrders,
	}
}

// mergeItems folds duplicate lines together. Lines merge only when both the
// product and the customization match; the same product with a different
// customization stays a separate order line.
func mergeItems(items []ItemInput) ([]ItemInput, error) {
	type lineKey struct {
		productID     uuid.UUID
		customization string
	}
	index := make(map[lineKey]int)
	merged := make([]ItemInput, 0, len(items))
	for _, item := range items {
		if item.Quantity <= 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive").
				WithDetails(map[string]any{"product_id": item.ProductID})
		}
		key := lineKey{productID: item.ProductID, customization: item.Customization}
		if at, ok := index[key]; ok {
			merged[at].Quantity += item.Quantity
			continue
		}
		index[key] = len(merged)
		merged = append(merged, item)
	}
	return merged, nil
}

func missingIDs(requested []uuid.UUID, found []models.Product) []uuid.UUID {
	have := make(map[uuid.UUID]bool, len(found))
	for _, p := range found {
		have[p.ID] = true
	}
	var missing []uuid.UUID
	for _, id := range requested {
		if !have[id] {
			missing = append(missing, id)
		}
	}
	return missing
}
