package generic

import (
	"regexp"
	"strings"
)

// =============================================================================
// NORMALIZATION - One pass at every ingress (store load, API input)
// =============================================================================

var (
	reAddressZipCity = regexp.MustCompile(`^(.*?)[,\s]+(\d{4,5})\s+(.+)$`)
	reStreetNo       = regexp.MustCompile(`^(.+?)\s+(\d+\w*)$`)
	reSpaces         = regexp.MustCompile(`\s+`)
)

// NormalizeParty trims every field and folds legacy shapes (name, address,
// fullName) into the structured fields. Returns nil for nil.
func NormalizeParty(in *Party) *Party {
	if in == nil {
		return nil
	}
	p := Party{
		FirstName:       strings.TrimSpace(in.FirstName),
		LastName:        strings.TrimSpace(in.LastName),
		Street:          strings.TrimSpace(in.Street),
		StreetNo:        strings.TrimSpace(in.StreetNo),
		Zip:             strings.TrimSpace(in.Zip),
		City:            strings.TrimSpace(in.City),
		Phone:           strings.TrimSpace(in.Phone),
		Email:           strings.TrimSpace(in.Email),
		RewardRequested: in.RewardRequested,
	}
	if p.LastName == "" {
		p.LastName = strings.TrimSpace(in.Name)
	}

	// "Musterstrasse 12, 8000 Zürich" etc., best effort
	address := strings.TrimSpace(reSpaces.ReplaceAllString(in.Address, " "))
	if address != "" && (p.Street == "" || p.Zip == "" || p.City == "") {
		if m := reAddressZipCity.FindStringSubmatch(address); m != nil {
			left := strings.TrimSpace(m[1])
			if p.Zip == "" {
				p.Zip = m[2]
			}
			if p.City == "" {
				p.City = strings.TrimSpace(m[3])
			}
			if p.Street == "" && left != "" {
				if sm := reStreetNo.FindStringSubmatch(left); sm != nil {
					p.Street = strings.TrimSpace(sm[1])
					if p.StreetNo == "" {
						p.StreetNo = sm[2]
					}
				} else {
					p.Street = left
				}
			}
		} else if p.Street == "" {
			p.Street = address
		}
	}

	// last token is the last name
	if full := strings.TrimSpace(in.FullName); full != "" && p.FirstName == "" && p.LastName == "" {
		parts := strings.Fields(full)
		p.LastName = parts[len(parts)-1]
		p.FirstName = strings.Join(parts[:len(parts)-1], " ")
	}
	return &p
}

// NormalizeRecord trims free text, migrates legacy parties and enforces
// that only one of predefinedKey/manualLabel is set (predefined wins).
// An empty status becomes OPEN; unknown statuses are left for the
// validator to reject. Timestamps are not touched.
func NormalizeRecord(in *CaseRecord) *CaseRecord {
	if in == nil {
		return nil
	}
	r := in.Clone()

	r.ID = strings.TrimSpace(r.ID)
	r.CaseNumber = strings.TrimSpace(r.CaseNumber)
	r.CaseWorker.ID = strings.TrimSpace(r.CaseWorker.ID)
	r.CaseWorker.Name = strings.TrimSpace(r.CaseWorker.Name)
	r.FoundAt.Date = strings.TrimSpace(r.FoundAt.Date)
	r.FoundAt.Time = strings.TrimSpace(r.FoundAt.Time)
	r.FoundAt.Location = strings.TrimSpace(r.FoundAt.Location)
	r.Notes = strings.TrimSpace(r.Notes)

	it := &r.Item
	for _, f := range []*string{&it.PredefinedKey, &it.ManualLabel, &it.Category, &it.Brand,
		&it.Type, &it.Color, &it.SerialNumber, &it.Description, &it.Condition} {
		*f = strings.TrimSpace(*f)
	}
	if it.PredefinedKey != "" && it.ManualLabel != "" {
		it.ManualLabel = ""
	}

	if r.Status == "" {
		r.Status = StatusOpen
	} else if st, ok := ParseStatus(string(r.Status)); ok {
		r.Status = st
	}

	r.Finder = NormalizeParty(r.Finder)
	r.Owner = NormalizeParty(r.Owner)
	r.Collector = NormalizeParty(r.Collector)

	if r.InvestigationSteps == nil {
		r.InvestigationSteps = []Step{}
	}
	if r.Receipts == nil {
		r.Receipts = []Receipt{}
	}
	return r
}
