package http

import (
	"fmt"
	"net/http"

	"moneymonitor/internal/core"
	"moneymonitor/internal/log"
)

func (s *Server) handleSaveMerchant(w http.ResponseWriter, r *http.Request) {
	params, err := requiredQuery(r, "userId", "merchant", "category", "type")
	if err != nil {
		s.fail(w, r, err, log.ComponentMerchant, log.OpSave, nil)
		return
	}
	userID, merchant, category := params[0], params[1], params[2]
	fields := log.NewFields().WithUser(userID).WithMerchant(merchant)

	typ, err := core.ParseExpenseType(params[3])
	if err != nil {
		s.fail(w, r, err, log.ComponentMerchant, log.OpSave, fields)
		return
	}

	ctx, cancel := s.withStoreTimeout(r.Context())
	defer cancel()

	if _, err := s.merchants.Save(ctx, userID, merchant, category, typ); err != nil {
		s.fail(w, r, err, log.ComponentMerchant, log.OpSave, fields)
		return
	}

	NewJSONResponse().
		Message(fmt.Sprintf("Merchant '%s' saved with category '%s'", merchant, category)).
		Write(w)
}

// handleLookupMerchant reports a saved mapping. A miss is a successful
// response with found=false.
func (s *Server) handleLookupMerchant(w http.ResponseWriter, r *http.Request) {
	userID := sanitizeInput(r.PathValue("userId"))
	merchant := sanitizeInput(r.PathValue("merchant"))

	ctx, cancel := s.withStoreTimeout(r.Context())
	defer cancel()

	m, found, err := s.merchants.Lookup(ctx, userID, merchant)
	if err != nil {
		s.fail(w, r, err, log.ComponentMerchant, log.OpLookup, log.NewFields().WithUser(userID).WithMerchant(merchant))
		return
	}

	resp := NewJSONResponse().
		Set("found", found).
		Set("merchant", merchant)
	if found {
		resp.Set("category", m.DefaultCategory).Set("type", m.DefaultType)
	}
	resp.Write(w)
}
