package model

import (
	"fmt"
	"strings"
)

type Role string

const (
	RoleFarmer Role = "farmer"
	RoleBuyer  Role = "buyer"
	RoleExpert Role = "expert"
	RoleAdmin  Role = "admin"
)

type Capability int

const (
	CapCreateListing Capability = iota
	CapMakeOffer
	CapViewAnyOffers
	CapDeleteAnyListing
)

var roleCapabilities = map[Role][]Capability{
	RoleFarmer: {CapCreateListing, CapMakeOffer},
	RoleBuyer:  {CapMakeOffer},
	RoleExpert: {},
	RoleAdmin:  {CapCreateListing, CapMakeOffer, CapViewAnyOffers, CapDeleteAnyListing},
}

// ParseRole maps a role claim to a Role. An empty claim is a buyer.
func ParseRole(s string) (Role, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return RoleBuyer, nil
	}
	r := Role(s)
	if _, ok := roleCapabilities[r]; !ok {
		return "", fmt.Errorf("unknown role %q", s)
	}
	return r, nil
}

func (r Role) Can(c Capability) bool {
	for _, have := range roleCapabilities[r] {
		if have == c {
			return true
		}
	}
	return false
}

// Actor is the authenticated identity performing an operation.
type Actor struct {
	UID  string
	Role Role
}
