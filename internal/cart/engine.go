package cart

import "context"

// Engine applies cart mutations. Every operation re-reads the persisted cart,
// computes the new one, writes it back and returns it.
type Engine struct {
	store Persister
}

func NewEngine(store Persister) *Engine {
	return &Engine{store: store}
}

// Load returns the current persisted cart.
func (e *Engine) Load(ctx context.Context) Cart {
	return e.store.Load(ctx)
}

// AddItem increments the quantity of an existing line or appends a new one.
// An existing line keeps its add-time snapshot; only the quantity grows.
// Quantities below 1 count as 1.
func (e *Engine) AddItem(ctx context.Context, candidate Candidate, quantity int) Cart {
	if quantity < 1 {
		quantity = 1
	}
	c := e.store.Load(ctx)
	if i := c.indexOf(candidate.ProductID); i >= 0 {
		c[i].Quantity += quantity
	} else {
		c = append(c, LineItem{
			ProductID: candidate.ProductID,
			Name:      candidate.Name,
			Price:     candidate.Price,
			ImageURL:  candidate.ImageURL,
			Quantity:  quantity,
		})
	}
	e.store.Save(ctx, c)
	return c
}

// UpdateQuantity sets the quantity of a line. Zero or negative removes it.
// Unknown products leave the cart unchanged.
func (e *Engine) UpdateQuantity(ctx context.Context, productID string, quantity int) Cart {
	if quantity <= 0 {
		return e.RemoveItem(ctx, productID)
	}
	c := e.store.Load(ctx)
	if i := c.indexOf(productID); i >= 0 {
		c[i].Quantity = quantity
	}
	e.store.Save(ctx, c)
	return c
}

func (e *Engine) RemoveItem(ctx context.Context, productID string) Cart {
	c := e.store.Load(ctx)
	if i := c.indexOf(productID); i >= 0 {
		c = append(c[:i], c[i+1:]...)
	}
	e.store.Save(ctx, c)
	return c
}

// RemoveOrdered takes the ordered quantities out of the cart. Lines added or grown
// after the order was taken keep the difference. An emptied cart is erased.
func (e *Engine) RemoveOrdered(ctx context.Context, ordered Cart) Cart {
	c := e.store.Load(ctx)
	for _, o := range ordered {
		i := c.indexOf(o.ProductID)
		if i < 0 {
			continue
		}
		c[i].Quantity -= o.Quantity
		if c[i].Quantity <= 0 {
			c = append(c[:i], c[i+1:]...)
		}
	}
	if len(c) == 0 {
		return e.Clear(ctx)
	}
	e.store.Save(ctx, c)
	return c
}

// Clear erases the persisted cart.
func (e *Engine) Clear(ctx context.Context) Cart {
	e.store.Clear(ctx)
	return Cart{}
}
