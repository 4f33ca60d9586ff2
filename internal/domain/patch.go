package domain

// WishlistPatch carries the mutable fields of a wishlist. Nil fields are left
// unchanged.
type WishlistPatch struct {
	Name   *string
	UserID *string
}

// IsEmpty reports whether the patch changes nothing.
func (p WishlistPatch) IsEmpty() bool {
	return p.Name == nil && p.UserID == nil
}

// Validate checks the patch without applying it.
func (p WishlistPatch) Validate() error {
	if p.Name != nil {
		return ValidateName(*p.Name)
	}
	return nil
}

// Apply validates p and copies its set fields onto w. On error w is unchanged.
func (w *Wishlist) Apply(p WishlistPatch) error {
	if err := p.Validate(); err != nil {
		return err
	}
	if p.Name != nil {
		w.Name = *p.Name
	}
	if p.UserID != nil {
		w.UserID = *p.UserID
	}
	return nil
}
