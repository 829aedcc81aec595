package service

import (
	"encoding/json"
	"testing"

	"github.com/bwmarrin/snowflake"
	promotiondomain "github.com/shulekit/shulekit/internal/promotion/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
)

func criteriaSet(t *testing.T, id int64, name string, items ...promotiondomain.CriteriaItem) promotiondomain.PromotionCriteria {
	t.Helper()
	raw, err := json.Marshal(items)
	require.NoError(t, err)
	return promotiondomain.PromotionCriteria{
		ID:             snowflake.ID(id),
		Name:           name,
		CustomCriteria: datatypes.JSON(raw),
		IsActive:       true,
	}
}

func TestEvaluateSetsDefaultsToEligibleWithoutRules(t *testing.T) {
	result, err := evaluateSets(nil, studentFacts{})
	require.NoError(t, err)
	assert.True(t, result.IsEligible)
	assert.True(t, result.DefaultAllowed)
	assert.Empty(t, result.Results)
}

func TestEvaluateSetsRequiresEveryItemInASet(t *testing.T) {
	sets := []promotiondomain.PromotionCriteria{
		criteriaSet(t, 1, "standard",
			promotiondomain.CriteriaItem{Type: promotiondomain.CriteriaGrade, Name: "average", Limit: 50},
			promotiondomain.CriteriaItem{Type: promotiondomain.CriteriaAttendance, Name: "attendance", Limit: 80},
		),
	}

	result, err := evaluateSets(sets, studentFacts{AverageGrade: 65, AttendanceRate: 70})
	require.NoError(t, err)
	assert.False(t, result.IsEligible)
	require.Len(t, result.Results, 1)
	assert.False(t, result.Results[0].Passed)
	assert.True(t, result.Results[0].Items[0].Passed)
	assert.False(t, result.Results[0].Items[1].Passed)
	assert.Contains(t, result.Results[0].Items[1].Reason, "attendance")
}

func TestEvaluateSetsAnyPassingSetGrantsEligibility(t *testing.T) {
	sets := []promotiondomain.PromotionCriteria{
		criteriaSet(t, 1, "strict",
			promotiondomain.CriteriaItem{Type: promotiondomain.CriteriaGrade, Name: "average", Limit: 90},
		),
		criteriaSet(t, 2, "lenient",
			promotiondomain.CriteriaItem{Type: promotiondomain.CriteriaGrade, Name: "average", Limit: 40},
		),
	}

	result, err := evaluateSets(sets, studentFacts{AverageGrade: 55})
	require.NoError(t, err)
	assert.True(t, result.IsEligible)
	assert.False(t, result.DefaultAllowed)
	assert.Equal(t, snowflake.ID(2), result.PrimarySetID)
	require.Len(t, result.Results, 2)
	assert.False(t, result.Results[0].Passed)
	assert.True(t, result.Results[1].Passed)
}

func TestEvaluateSetsPrimarySetIsFirstToPass(t *testing.T) {
	sets := []promotiondomain.PromotionCriteria{
		criteriaSet(t, 7, "first",
			promotiondomain.CriteriaItem{Type: promotiondomain.CriteriaGrade, Name: "average", Limit: 40},
		),
		criteriaSet(t, 8, "second",
			promotiondomain.CriteriaItem{Type: promotiondomain.CriteriaGrade, Name: "average", Limit: 40},
		),
	}

	result, err := evaluateSets(sets, studentFacts{AverageGrade: 55})
	require.NoError(t, err)
	assert.Equal(t, snowflake.ID(7), result.PrimarySetID)
}

func TestEvaluateFeeItemsSkippedForTerminalGrades(t *testing.T) {
	sets := []promotiondomain.PromotionCriteria{
		criteriaSet(t, 1, "clearance",
			promotiondomain.CriteriaItem{Type: promotiondomain.CriteriaFeeBalance, Name: "fees", IsRequired: true},
		),
	}

	owing := studentFacts{FeeOutstanding: 250_000}
	result, err := evaluateSets(sets, owing)
	require.NoError(t, err)
	assert.False(t, result.IsEligible)

	owing.SkipFeeItems = true
	result, err = evaluateSets(sets, owing)
	require.NoError(t, err)
	assert.True(t, result.IsEligible)
}

func TestEvaluateFeeBalanceLimit(t *testing.T) {
	sets := []promotiondomain.PromotionCriteria{
		criteriaSet(t, 1, "partial clearance",
			promotiondomain.CriteriaItem{Type: promotiondomain.CriteriaFeeBalance, Name: "fees", Limit: 50_000},
		),
	}

	result, err := evaluateSets(sets, studentFacts{FeeOutstanding: 50_000})
	require.NoError(t, err)
	assert.True(t, result.IsEligible)

	result, err = evaluateSets(sets, studentFacts{FeeOutstanding: 50_001})
	require.NoError(t, err)
	assert.False(t, result.IsEligible)
}

func TestEvaluateDisciplinaryItems(t *testing.T) {
	sets := []promotiondomain.PromotionCriteria{
		criteriaSet(t, 1, "conduct",
			promotiondomain.CriteriaItem{Type: promotiondomain.CriteriaDisciplinary, Name: "record", IsRequired: true},
		),
	}

	result, err := evaluateSets(sets, studentFacts{DisciplinaryCases: 0})
	require.NoError(t, err)
	assert.True(t, result.IsEligible)

	result, err = evaluateSets(sets, studentFacts{DisciplinaryCases: 1})
	require.NoError(t, err)
	assert.False(t, result.IsEligible)
	assert.Contains(t, firstFailureReason(result), "clean record")
}

func TestEvaluateCustomItems(t *testing.T) {
	sets := []promotiondomain.PromotionCriteria{
		criteriaSet(t, 1, "with-interview",
			promotiondomain.CriteriaItem{Type: promotiondomain.CriteriaGrade, Name: "average", Limit: 50},
			promotiondomain.CriteriaItem{Type: promotiondomain.CriteriaCustom, Name: "library clearance"},
		),
	}

	// An advisory custom item is recorded but does not block.
	result, err := evaluateSets(sets, studentFacts{AverageGrade: 70})
	require.NoError(t, err)
	assert.True(t, result.IsEligible)
	require.Len(t, result.Results[0].Items, 2)
	custom := result.Results[0].Items[1]
	assert.Equal(t, promotiondomain.CriteriaCustom, custom.Type)
	assert.True(t, custom.Passed)

	// A required one holds the student for manual sign-off.
	sets = []promotiondomain.PromotionCriteria{
		criteriaSet(t, 2, "with-interview",
			promotiondomain.CriteriaItem{Type: promotiondomain.CriteriaCustom, Name: "headteacher interview", IsRequired: true},
		),
	}
	result, err = evaluateSets(sets, studentFacts{AverageGrade: 70})
	require.NoError(t, err)
	assert.False(t, result.IsEligible)
	require.Len(t, result.Results[0].Items, 1)
	assert.False(t, result.Results[0].Items[0].Passed)
	assert.Contains(t, result.Results[0].Items[0].Reason, "manual verification")
}

func TestValidateItems(t *testing.T) {
	assert.Error(t, validateItems(nil))

	assert.Error(t, validateItems([]promotiondomain.CriteriaItem{
		{Type: promotiondomain.CriteriaGrade, Name: "", Limit: 50},
	}))
	assert.Error(t, validateItems([]promotiondomain.CriteriaItem{
		{Type: promotiondomain.CriteriaGrade, Name: "average", Limit: 120},
	}))
	assert.Error(t, validateItems([]promotiondomain.CriteriaItem{
		{Type: "unknown", Name: "whatever", Limit: 1},
	}))

	assert.Error(t, validateItems([]promotiondomain.CriteriaItem{
		{Type: promotiondomain.CriteriaCustom, Name: "clearance", Limit: -1},
	}))

	assert.NoError(t, validateItems([]promotiondomain.CriteriaItem{
		{Type: promotiondomain.CriteriaGrade, Name: "average", Limit: 50},
		{Type: promotiondomain.CriteriaFeeBalance, Name: "fees", Limit: 0, IsRequired: true},
		{Type: promotiondomain.CriteriaCustom, Name: "headteacher interview", IsRequired: true},
	}))
}
