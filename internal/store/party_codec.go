package store

import (
	"encoding/json"
	"fmt"

	"swift-gateway/pkg/models"
)

// partyRecord is the serialized form of the Party tagged union. The kind
// discriminator keeps the two wire variants apart across a round trip.
type partyRecord struct {
	Kind    string   `json:"kind"`
	Account string   `json:"account,omitempty"`
	BIC     string   `json:"bic,omitempty"`
	Name    string   `json:"name,omitempty"`
	Address []string `json:"address,omitempty"`
}

const (
	partyKindBIC  = "bic"
	partyKindName = "name"
)

func encodeParty(party models.Party) ([]byte, error) {
	if party == nil {
		return nil, nil
	}
	var rec partyRecord
	switch p := party.(type) {
	case models.BICParty:
		rec = partyRecord{Kind: partyKindBIC, Account: p.Account, BIC: p.BIC}
	case models.NameParty:
		rec = partyRecord{Kind: partyKindName, Account: p.Account, Name: p.Name, Address: p.Address}
	default:
		return nil, fmt.Errorf("unknown party variant %T", party)
	}
	return json.Marshal(rec)
}

func decodeParty(data []byte) (models.Party, error) {
	if len(data) == 0 {
		return nil, nil
	}
	var rec partyRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, err
	}
	switch rec.Kind {
	case partyKindBIC:
		return models.BICParty{Account: rec.Account, BIC: rec.BIC}, nil
	case partyKindName:
		return models.NameParty{Account: rec.Account, Name: rec.Name, Address: rec.Address}, nil
	default:
		return nil, fmt.Errorf("unknown party kind %q", rec.Kind)
	}
}
