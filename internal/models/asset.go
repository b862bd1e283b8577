package models

import "encoding/json"

// Asset is one image attached to a product.
type Asset struct {
	URL string `json:"url"`
	Alt string `json:"alt,omitempty"`
}

// AssetList normalizes the historical image field shapes at the boundary.
// Older records stored a bare URL string, then a single object, then a list;
// all three decode into one canonical list.
type AssetList []Asset

func (a *AssetList) UnmarshalJSON(data []byte) error {
	// Legacy bare string.
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		if s == "" {
			*a = AssetList{}
		} else {
			*a = AssetList{{URL: s}}
		}
		return nil
	}

	// Single object.
	var one Asset
	if err := json.Unmarshal(data, &one); err == nil && one.URL != "" {
		*a = AssetList{one}
		return nil
	}

	// List form, whose elements may themselves be strings or objects.
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	out := make(AssetList, 0, len(raw))
	for _, r := range raw {
		var elem Asset
		if err := json.Unmarshal(r, &elem); err == nil && elem.URL != "" {
			out = append(out, elem)
			continue
		}
		var url string
		if err := json.Unmarshal(r, &url); err != nil {
			return err
		}
		if url != "" {
			out = append(out, Asset{URL: url})
		}
	}
	*a = out
	return nil
}

func (a AssetList) MarshalJSON() ([]byte, error) {
	if a == nil {
		return []byte("[]"), nil
	}
	return json.Marshal([]Asset(a))
}
