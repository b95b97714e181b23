package main

import (
	"crypto/subtle"

	"github.com/emilyhon/project-auctionable-nfts/core"
)

// operatorGate is the access-control collaborator. The ledger checks the
// operator by address; the wire layer additionally checks a bearer token so a
// remote caller cannot act as the operator just by claiming the address.
type operatorGate struct {
	operator core.Address
	token    string
}

func newOperatorGate(operator core.Address, token string) *operatorGate {
	return &operatorGate{operator: operator, token: token}
}

// IsOperator implements core.AccessControl.
func (g *operatorGate) IsOperator(caller core.Address) bool {
	return !caller.IsZero() && caller == g.operator
}

// CheckToken verifies the operator bearer token in constant time.
func (g *operatorGate) CheckToken(token string) bool {
	if token == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(token), []byte(g.token)) == 1
}
