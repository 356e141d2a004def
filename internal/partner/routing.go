// Package partner kurulum ortaklarını, gelen talepleri (lead) ortaklara yönlendirmeyi,
// komisyonları ve müşteri değerlendirmelerini yönetir.
package partner

import (
	"sort"
	"strconv"
	"strings"
	"unicode"

	"gunes-backend/internal/models"

	"github.com/shopspring/decimal"
)

// Candidate yönlendirmeye aday ortak ve üzerindeki açık talep sayısı.
type Candidate struct {
	Partner   models.Partner
	OpenLeads int
}

func normalize(s string) string {
	return strings.ToLowerSpecial(unicode.TurkishCase, strings.TrimSpace(s))
}

// SplitList virgülle ayrılmış listeyi boşlukları atarak böler.
func SplitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// JoinList SplitList'in tersi; tekrar edenler atlanır.
func JoinList(items []string) string {
	seen := map[string]bool{}
	out := make([]string, 0, len(items))
	for _, it := range items {
		it = strings.TrimSpace(it)
		if it == "" || seen[normalize(it)] {
			continue
		}
		seen[normalize(it)] = true
		out = append(out, it)
	}
	return strings.Join(out, ",")
}

func contains(list, value string) bool {
	v := normalize(value)
	for _, it := range SplitList(list) {
		if normalize(it) == v {
			return true
		}
	}
	return false
}

// Eligible aktif, doğrulanmış, ili ve hizmet türünü kapsayan ortak.
func Eligible(p models.Partner, city, serviceType string) bool {
	return p.IsActive && p.IsVerified && contains(p.Cities, city) && contains(p.ServiceTypes, serviceType)
}

// Rank uygun adayları puana (azalan), açık talep sayısına (artan) ve id'ye göre sıralar.
// excluded içindeki ortaklar (talebi reddedenler) elenir.
func Rank(cands []Candidate, city, serviceType string, excluded map[uint]bool) []Candidate {
	out := make([]Candidate, 0, len(cands))
	for _, c := range cands {
		if excluded[c.Partner.ID] || !Eligible(c.Partner, city, serviceType) {
			continue
		}
		out = append(out, c)
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Partner.Rating != b.Partner.Rating {
			return a.Partner.Rating > b.Partner.Rating
		}
		if a.OpenLeads != b.OpenLeads {
			return a.OpenLeads < b.OpenLeads
		}
		return a.Partner.ID < b.Partner.ID
	})
	return out
}

// DeclinedSet talebi reddeden ortak id'leri.
func DeclinedSet(lead models.PartnerQuoteRequest) map[uint]bool {
	set := map[uint]bool{}
	for _, s := range SplitList(lead.DeclinedBy) {
		if id, err := strconv.ParseUint(s, 10, 64); err == nil {
			set[uint(id)] = true
		}
	}
	return set
}

func addDeclined(lead *models.PartnerQuoteRequest, partnerID uint) {
	ids := SplitList(lead.DeclinedBy)
	ids = append(ids, strconv.FormatUint(uint64(partnerID), 10))
	lead.DeclinedBy = JoinList(ids)
}

// CommissionAmount sözleşme tutarı × oran / 100, kuruşa yuvarlanmış.
func CommissionAmount(contract, rate decimal.Decimal) decimal.Decimal {
	return contract.Mul(rate).Div(decimal.NewFromInt(100)).Round(2)
}

// AverageRating 1 ondalığa yuvarlanmış ortalama; değerlendirme yoksa 0.
func AverageRating(ratings []int) float64 {
	if len(ratings) == 0 {
		return 0
	}
	sum := 0
	for _, r := range ratings {
		sum += r
	}
	avg := decimal.NewFromInt(int64(sum)).Div(decimal.NewFromInt(int64(len(ratings)))).Round(1)
	return avg.InexactFloat64()
}
