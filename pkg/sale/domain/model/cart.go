package model

import "github.com/google/uuid"

type CartEvent interface {
	apply(c *Cart)
}

type ItemAdded struct {
	Product Product
}

type ItemRemoved struct {
	ProductID uuid.UUID
}

// QuantityChanged moves a line's quantity by Delta, never below 1.
type QuantityChanged struct {
	ProductID uuid.UUID
	Delta     int
}

// QuantitySet replaces a line's quantity. A value below 1 drops the line.
type QuantitySet struct {
	ProductID uuid.UUID
	Quantity  int
}

func (e ItemAdded) apply(c *Cart)       { c.AddItem(e.Product) }
func (e ItemRemoved) apply(c *Cart)     { c.RemoveItem(e.ProductID) }
func (e QuantityChanged) apply(c *Cart) { c.ChangeQuantity(e.ProductID, e.Delta) }
func (e QuantitySet) apply(c *Cart)     { c.SetQuantity(e.ProductID, e.Quantity) }

// Cart keeps one line per product in the order products were first added.
type Cart struct {
	items []LineItem
}

func NewCart() *Cart {
	return &Cart{}
}

// BuildLineItems folds events into a normalized line list.
func BuildLineItems(events ...CartEvent) []LineItem {
	cart := NewCart()
	for _, event := range events {
		cart.Apply(event)
	}
	return cart.Snapshot()
}

func (c *Cart) Apply(event CartEvent) {
	event.apply(c)
}

func (c *Cart) AddItem(product Product) {
	c.AddLine(LineItem{
		ProductID: product.ID,
		Name:      product.Name,
		Price:     product.SellingPrice,
		Quantity:  1,
	})
}

// AddLine merges item into the cart. An existing line keeps its captured
// name and price and only gains quantity.
func (c *Cart) AddLine(item LineItem) {
	if i := c.indexOf(item.ProductID); i >= 0 {
		c.items[i].Quantity += item.Quantity
		return
	}
	c.items = append(c.items, item)
}

func (c *Cart) RemoveItem(productID uuid.UUID) {
	if i := c.indexOf(productID); i >= 0 {
		c.items = append(c.items[:i], c.items[i+1:]...)
	}
}

func (c *Cart) ChangeQuantity(productID uuid.UUID, delta int) {
	i := c.indexOf(productID)
	if i < 0 {
		return
	}
	c.items[i].Quantity = max(1, c.items[i].Quantity+delta)
}

func (c *Cart) SetQuantity(productID uuid.UUID, quantity int) {
	if quantity < 1 {
		c.RemoveItem(productID)
		return
	}
	if i := c.indexOf(productID); i >= 0 {
		c.items[i].Quantity = quantity
	}
}

func (c *Cart) Len() int {
	return len(c.items)
}

// Snapshot returns a copy that later cart changes do not affect.
func (c *Cart) Snapshot() []LineItem {
	snapshot := make([]LineItem, len(c.items))
	copy(snapshot, c.items)
	return snapshot
}

func (c *Cart) indexOf(productID uuid.UUID) int {
	for i, item := range c.items {
		if item.ProductID == productID {
			return i
		}
	}
	return -1
}
