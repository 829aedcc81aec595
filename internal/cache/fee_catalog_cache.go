package cache

import (
	"strconv"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	feedomain "github.com/shulekit/shulekit/internal/feestructure/domain"
	schooldomain "github.com/shulekit/shulekit/internal/school/domain"
)

const (
	defaultFeeTTL  = 5 * time.Minute
	defaultTermTTL = 10 * time.Minute
)

// FeeCatalogCache stores hot-path catalog lookups for balance computation.
// Balances are recomputed on every read, so the fee structures and term
// layout for a grade are fetched far more often than they change.
type FeeCatalogCache interface {
	GetGradeFees(schoolID, yearID, gradeID snowflake.ID) ([]feedomain.FeeStructure, bool)
	SetGradeFees(schoolID, yearID, gradeID snowflake.ID, fees []feedomain.FeeStructure)
	InvalidateGradeFees(schoolID, yearID, gradeID snowflake.ID)
	GetTerms(yearID snowflake.ID) ([]schooldomain.Term, bool)
	SetTerms(yearID snowflake.ID, terms []schooldomain.Term)
}

type feeCatalogCache struct {
	fees    Cache[string, []feedomain.FeeStructure]
	terms   Cache[string, []schooldomain.Term]
	feeTTL  time.Duration
	termTTL time.Duration
}

// NewFeeCatalogCache returns an in-memory cache tuned for ledger reads.
func NewFeeCatalogCache() FeeCatalogCache {
	return &feeCatalogCache{
		fees:    NewTTLCache[string, []feedomain.FeeStructure](),
		terms:   NewTTLCache[string, []schooldomain.Term](),
		feeTTL:  defaultFeeTTL,
		termTTL: defaultTermTTL,
	}
}

func (c *feeCatalogCache) GetGradeFees(schoolID, yearID, gradeID snowflake.ID) ([]feedomain.FeeStructure, bool) {
	return c.fees.Get(cacheKey(schoolID, yearID, gradeID))
}

func (c *feeCatalogCache) SetGradeFees(schoolID, yearID, gradeID snowflake.ID, fees []feedomain.FeeStructure) {
	if fees == nil {
		return
	}
	c.fees.Set(cacheKey(schoolID, yearID, gradeID), fees, c.feeTTL)
}

func (c *feeCatalogCache) InvalidateGradeFees(schoolID, yearID, gradeID snowflake.ID) {
	c.fees.Delete(cacheKey(schoolID, yearID, gradeID))
}

func (c *feeCatalogCache) GetTerms(yearID snowflake.ID) ([]schooldomain.Term, bool) {
	return c.terms.Get(cacheKey(yearID))
}

func (c *feeCatalogCache) SetTerms(yearID snowflake.ID, terms []schooldomain.Term) {
	if terms == nil {
		return
	}
	c.terms.Set(cacheKey(yearID), terms, c.termTTL)
}

func cacheKey(parts ...snowflake.ID) string {
	values := make([]string, 0, len(parts))
	for _, part := range parts {
		values = append(values, strconv.FormatInt(part.Int64(), 10))
	}
	return strings.Join(values, "|")
}
