package checkout

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strconv"
	"strings"

	"storefront-svc/models"

	"github.com/shopspring/decimal"
)

// Fingerprint identifies a submission by customer email, cart contents and declared
// total. Line order and email case do not change it.
func Fingerprint(email string, items []models.CartItem, total decimal.Decimal) string {
	lines := make([]string, 0, len(items))
	for _, item := range mergeLines(items) {
		lines = append(lines, strconv.Itoa(item.ID)+":"+strconv.Itoa(item.Quantity))
	}
	sort.Strings(lines)

	h := sha256.New()
	h.Write([]byte(strings.ToLower(strings.TrimSpace(email))))
	h.Write([]byte("|"))
	h.Write([]byte(strings.Join(lines, ",")))
	h.Write([]byte("|"))
	h.Write([]byte(total.StringFixed(2)))
	return hex.EncodeToString(h.Sum(nil))
}

// mergeLines folds repeated product ids into one line, keeping first-seen order.
func mergeLines(items []models.CartItem) []models.CartItem {
	merged := make([]models.CartItem, 0, len(items))
	index := make(map[int]int, len(items))
	for _, item := range items {
		if i, ok := index[item.ID]; ok {
			merged[i].Quantity += item.Quantity
			continue
		}
		index[item.ID] = len(merged)
		merged = append(merged, item)
	}
	return merged
}
