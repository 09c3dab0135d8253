package game

import (
	"testing"
	"time"

	"blackjack-engine/internal/core/domain"
	"blackjack-engine/pkg/apperror"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2026, 1, 2, 15, 4, 5, 0, time.UTC)

// dealRound deals a round from a rigged shoe. Shoe order is player, dealer
// up-card, player, dealer hole card, then draws.
func dealRound(t *testing.T, shoe string, bet int64, rules ...func(*domain.TableConfig)) *domain.Round {
	t.Helper()
	cards, err := domain.ParseCards(shoe)
	require.NoError(t, err)

	table := domain.DefaultTableConfig()
	for _, rule := range rules {
		rule(&table)
	}
	r := &domain.Round{
		ID:           uuid.New(),
		UserID:       uuid.New(),
		Status:       domain.RoundStatusPlayerTurn,
		BetAmount:    bet,
		LockedAmount: bet,
		Shoe:         cards,
		Table:        table,
		CreatedAt:    t0,
	}
	require.NoError(t, Deal(r, t0))
	assertLockInvariant(t, r)
	return r
}

func apply(t *testing.T, r *domain.Round, kind domain.ActionKind) {
	t.Helper()
	require.NoError(t, Apply(r, domain.Action{Kind: kind}, t0.Add(time.Second)))
	assertLockInvariant(t, r)
}

func assertLockInvariant(t *testing.T, r *domain.Round) {
	t.Helper()
	assert.Equal(t, r.TotalWagered(), r.LockedAmount, "locked amount must equal wagers plus insurance")
}

func assertIllegal(t *testing.T, r *domain.Round, a domain.Action) {
	t.Helper()
	before := r.Clone()
	err := Apply(r.Clone(), a, t0)
	require.Error(t, err)
	assert.True(t, apperror.HasCode(err, apperror.CodeIllegalAction), "got %v", err)
	assert.Equal(t, before.StateHash(), r.StateHash())
}

func TestScenario_StandAndDealerDrawsTo18(t *testing.T) {
	r := dealRound(t, "TS 6H 7D 5C 7S", 1000)

	assert.Equal(t, domain.RoundStatusPlayerTurn, r.Status)
	assert.True(t, r.State.DealerHoleHidden)
	assert.Equal(t, domain.InsuranceNone, r.State.Insurance)

	apply(t, r, domain.ActionStand)

	assert.Equal(t, domain.RoundStatusCompleted, r.Status)
	assert.Equal(t, 18, r.State.DealerHand.Score())
	require.NotNil(t, r.Summary)
	assert.Equal(t, domain.OutcomeLose, r.Summary.Hands[0].Outcome)
	assert.Equal(t, int64(-1000), r.Summary.TotalNet)
	assert.False(t, r.State.DealerHoleHidden)
}

func TestScenario_NaturalCompletesImmediately(t *testing.T) {
	r := dealRound(t, "AS 9H KD 8C", 500)

	assert.Equal(t, domain.RoundStatusCompleted, r.Status)
	require.NotNil(t, r.Summary)
	assert.Equal(t, domain.OutcomeBlackjack, r.Summary.Hands[0].Outcome)
	assert.Equal(t, int64(750), r.Summary.TotalNet)
	assert.Len(t, r.State.DealerHand.Cards, 2, "dealer does not draw against a lone natural")
}

func TestScenario_DeclinedInsuranceDealerBlackjack(t *testing.T) {
	r := dealRound(t, "TS AH 9D KC", 100)

	assert.Equal(t, domain.InsuranceOffered, r.State.Insurance)
	assert.Equal(t, domain.RoundStatusPlayerTurn, r.Status)

	apply(t, r, domain.ActionDeclineInsurance)

	assert.Equal(t, domain.RoundStatusCompleted, r.Status)
	assert.True(t, r.State.DealerPeeked)
	require.NotNil(t, r.Summary)
	assert.True(t, r.Summary.DealerBlackjack)
	assert.Equal(t, domain.OutcomeLose, r.Summary.Hands[0].Outcome)
	assert.Equal(t, int64(0), r.InsuranceBet)
	assert.Equal(t, int64(0), r.Summary.InsuranceNet)
	assert.Equal(t, int64(-100), r.Summary.TotalNet)
	assert.Equal(t, int64(100), r.LockedAmount)
}

func TestInsurance_TakenDealerBlackjack(t *testing.T) {
	r := dealRound(t, "TS AH 9D KC", 100)

	require.NoError(t, Apply(r, domain.Action{Kind: domain.ActionInsurance, Amount: 50}, t0))
	assertLockInvariant(t, r)

	assert.Equal(t, domain.RoundStatusCompleted, r.Status)
	assert.Equal(t, int64(150), r.LockedAmount)
	assert.Equal(t, int64(100), r.Summary.InsuranceNet)
	assert.Equal(t, int64(0), r.Summary.TotalNet)
}

func TestInsurance_TakenNoDealerBlackjack(t *testing.T) {
	r := dealRound(t, "TS AH 9D 7C", 100)

	require.NoError(t, Apply(r, domain.Action{Kind: domain.ActionInsurance, Amount: 50}, t0))
	assert.Equal(t, domain.RoundStatusPlayerTurn, r.Status)
	assert.Equal(t, domain.InsuranceTaken, r.State.Insurance)

	apply(t, r, domain.ActionStand)

	assert.Equal(t, domain.RoundStatusCompleted, r.Status)
	assert.Equal(t, 18, r.Summary.DealerTotal)
	assert.Equal(t, domain.OutcomeWin, r.Summary.Hands[0].Outcome)
	assert.Equal(t, int64(-50), r.Summary.InsuranceNet)
	assert.Equal(t, int64(50), r.Summary.TotalNet)
}

func TestInsurance_MustBeResolvedFirst(t *testing.T) {
	r := dealRound(t, "TS AH 9D 7C", 100)

	assertIllegal(t, r, domain.Action{Kind: domain.ActionHit})
	assertIllegal(t, r, domain.Action{Kind: domain.ActionStand})
	assertIllegal(t, r, domain.Action{Kind: domain.ActionInsurance, Amount: 51})
	assertIllegal(t, r, domain.Action{Kind: domain.ActionInsurance, Amount: 0})

	apply(t, r, domain.ActionDeclineInsurance)
	assertIllegal(t, r, domain.Action{Kind: domain.ActionInsurance, Amount: 10})
	assertIllegal(t, r, domain.Action{Kind: domain.ActionDeclineInsurance})
}

func TestInsurance_NotOfferedWithoutAce(t *testing.T) {
	r := dealRound(t, "TS 6H 7D 5C", 100)
	assertIllegal(t, r, domain.Action{Kind: domain.ActionInsurance, Amount: 10})
}

func TestHitAfterStand_IsInvalidTransition(t *testing.T) {
	r := dealRound(t, "TS 6H 7D 5C 7S", 100)
	apply(t, r, domain.ActionStand)
	require.Equal(t, domain.RoundStatusCompleted, r.Status)

	_, err := Check(r, domain.Action{Kind: domain.ActionHit})
	assert.True(t, apperror.HasCode(err, apperror.CodeInvalidTransition), "got %v", err)
}

func TestCompletedRound_InvalidTransition(t *testing.T) {
	r := dealRound(t, "AS 9H KD 8C", 100)
	require.Equal(t, domain.RoundStatusCompleted, r.Status)

	for _, kind := range []domain.ActionKind{domain.ActionHit, domain.ActionStand, domain.ActionDouble, domain.ActionSurrender} {
		_, err := Check(r, domain.Action{Kind: kind})
		assert.True(t, apperror.HasCode(err, apperror.CodeInvalidTransition), "%s: got %v", kind, err)
	}

	before := r.StateHash()
	n := len(r.History)
	assert.True(t, apperror.HasCode(Apply(r, domain.Action{Kind: domain.ActionHit}, t0), apperror.CodeInvalidTransition))
	assert.Equal(t, before, r.StateHash())
	assert.Len(t, r.History, n)
}

func TestHit_BustResolvesHand(t *testing.T) {
	r := dealRound(t, "TS 6H 6D TC 9S", 100)
	apply(t, r, domain.ActionHit)

	assert.Equal(t, domain.HandStatusBust, r.State.PlayerHands[0].Status)
	assert.Equal(t, domain.RoundStatusCompleted, r.Status)
	assert.Len(t, r.State.DealerHand.Cards, 2, "dealer does not draw when every hand is bust")
	assert.Equal(t, domain.OutcomeBust, r.Summary.Hands[0].Outcome)
	assert.Equal(t, int64(-100), r.Summary.TotalNet)
}

func TestHit_TwentyOneAutoStands(t *testing.T) {
	r := dealRound(t, "TS 6H 6D TC 5S KD", 100)
	apply(t, r, domain.ActionHit)

	assert.Equal(t, domain.HandStatusStood, r.State.PlayerHands[0].Status)
	assert.Equal(t, domain.OutcomeWin, r.Summary.Hands[0].Outcome)
}

func TestDouble(t *testing.T) {
	r := dealRound(t, "6S 6H 5D TC 9S KC", 100)
	apply(t, r, domain.ActionDouble)

	h := r.State.PlayerHands[0]
	assert.True(t, h.Doubled)
	assert.Equal(t, int64(200), h.Wager)
	assert.Equal(t, int64(200), r.LockedAmount)
	assert.Len(t, h.Cards, 3)
	assert.Equal(t, domain.RoundStatusCompleted, r.Status)
	assert.Equal(t, int64(200), r.Summary.TotalNet)
}

func TestDouble_OnlyFirstAction(t *testing.T) {
	r := dealRound(t, "2S 6H 3D TC 2C 2D", 100)
	apply(t, r, domain.ActionHit)

	assertIllegal(t, r, domain.Action{Kind: domain.ActionDouble})
}

func TestSplit_DoubleAfterSplitAndDealerBust(t *testing.T) {
	r := dealRound(t, "8S 6H 8D TC 3S 2H 9C TD KH", 100)

	extra, err := Check(r, domain.Action{Kind: domain.ActionSplit})
	require.NoError(t, err)
	assert.Equal(t, int64(100), extra)

	apply(t, r, domain.ActionSplit)
	require.Len(t, r.State.PlayerHands, 2)
	assert.Equal(t, 11, r.State.PlayerHands[0].Score())
	assert.Equal(t, 10, r.State.PlayerHands[1].Score())
	assert.Equal(t, int64(200), r.LockedAmount)

	apply(t, r, domain.ActionDouble)
	assert.Equal(t, 1, r.State.ActiveHand)

	// Hand 0 is resolved; acting on it again is refused.
	zero := 0
	assertIllegal(t, r, domain.Action{Kind: domain.ActionHit, Hand: &zero})

	apply(t, r, domain.ActionHit)
	apply(t, r, domain.ActionStand)

	assert.Equal(t, domain.RoundStatusCompleted, r.Status)
	assert.Equal(t, int64(300), r.LockedAmount)
	assert.Greater(t, r.Summary.DealerTotal, 21)
	assert.Equal(t, domain.OutcomeWin, r.Summary.Hands[0].Outcome)
	assert.Equal(t, domain.OutcomeWin, r.Summary.Hands[1].Outcome)
	assert.Equal(t, int64(300), r.Summary.TotalNet)
}

func TestSplit_AcesTakeOneCardEach(t *testing.T) {
	r := dealRound(t, "AS 6H AD TC KS 9H 5D", 100)
	apply(t, r, domain.ActionSplit)

	assert.Equal(t, domain.RoundStatusCompleted, r.Status)
	assert.Equal(t, 21, r.Summary.DealerTotal)
	assert.Equal(t, domain.OutcomePush, r.Summary.Hands[0].Outcome, "21 after a split is not blackjack")
	assert.Equal(t, domain.OutcomeLose, r.Summary.Hands[1].Outcome)
	assert.Equal(t, int64(-100), r.Summary.TotalNet)
}

func TestSplit_Rules(t *testing.T) {
	t.Run("not a pair", func(t *testing.T) {
		r := dealRound(t, "KS 6H QD TC", 100)
		assertIllegal(t, r, domain.Action{Kind: domain.ActionSplit})
	})
	t.Run("disabled", func(t *testing.T) {
		r := dealRound(t, "8S 6H 8D TC", 100, func(c *domain.TableConfig) { c.AllowSplit = false })
		assertIllegal(t, r, domain.Action{Kind: domain.ActionSplit})
	})
	t.Run("max hands", func(t *testing.T) {
		r := dealRound(t, "8S 6H 8D TC", 100, func(c *domain.TableConfig) { c.MaxHands = 1 })
		assertIllegal(t, r, domain.Action{Kind: domain.ActionSplit})
	})
	t.Run("no double after split", func(t *testing.T) {
		r := dealRound(t, "8S 6H 8D TC 3S 2H", 100, func(c *domain.TableConfig) { c.AllowDoubleAfterSplit = false })
		apply(t, r, domain.ActionSplit)
		assertIllegal(t, r, domain.Action{Kind: domain.ActionDouble})
	})
}

func TestSurrender(t *testing.T) {
	allow := func(c *domain.TableConfig) { c.AllowSurrender = true }

	r := dealRound(t, "TS 6H 6D TC", 101, allow)
	apply(t, r, domain.ActionSurrender)

	assert.Equal(t, domain.RoundStatusCompleted, r.Status)
	assert.Equal(t, domain.OutcomeSurrender, r.Summary.Hands[0].Outcome)
	assert.Equal(t, int64(-51), r.Summary.TotalNet)

	r = dealRound(t, "TS 6H 6D TC", 100)
	assertIllegal(t, r, domain.Action{Kind: domain.ActionSurrender})
}

func TestDealerSoft17(t *testing.T) {
	shoe := "TS 6H 8D AC 2S"

	stands := dealRound(t, shoe, 100)
	apply(t, stands, domain.ActionStand)
	assert.Equal(t, 17, stands.Summary.DealerTotal)
	assert.Equal(t, int64(100), stands.Summary.TotalNet)

	hits := dealRound(t, shoe, 100, func(c *domain.TableConfig) { c.DealerHitsSoft17 = true })
	apply(t, hits, domain.ActionStand)
	assert.Equal(t, 19, hits.Summary.DealerTotal)
	assert.Equal(t, int64(-100), hits.Summary.TotalNet)
}

func TestPeek_TenUpCardDealerBlackjack(t *testing.T) {
	r := dealRound(t, "9S KH 9D AC", 100)

	assert.True(t, r.State.DealerPeeked)
	assert.Equal(t, domain.RoundStatusCompleted, r.Status)
	assert.Equal(t, int64(-100), r.Summary.TotalNet)
}

func TestBothBlackjackPush(t *testing.T) {
	r := dealRound(t, "AS KH KD AC", 100)

	assert.Equal(t, domain.RoundStatusCompleted, r.Status)
	assert.Equal(t, domain.OutcomePush, r.Summary.Hands[0].Outcome)
	assert.Equal(t, int64(0), r.Summary.TotalNet)
}

func TestBlackjackPayout(t *testing.T) {
	threeTwo := domain.DefaultTableConfig()
	assert.Equal(t, int64(750), BlackjackPayout(500, threeTwo))
	assert.Equal(t, int64(7), BlackjackPayout(5, threeTwo), "fractions are truncated")

	sixFive := threeTwo
	sixFive.BlackjackPayoutNum, sixFive.BlackjackPayoutDen = 6, 5
	assert.Equal(t, int64(30), BlackjackPayout(25, sixFive))
}

func TestForceStand(t *testing.T) {
	r := dealRound(t, "TS 6H 2D TC 5S", 100)
	require.NoError(t, ForceStand(r, t0))

	assert.Equal(t, domain.RoundStatusCompleted, r.Status)
	assert.Equal(t, domain.HandStatusStood, r.State.PlayerHands[0].Status)
	assert.Equal(t, 21, r.Summary.DealerTotal)

	// Completed rounds are left alone.
	require.NoError(t, ForceStand(r, t0))
}

func TestForceStand_DeclinesPendingInsurance(t *testing.T) {
	r := dealRound(t, "TS AH 9D 7C", 100)
	require.NoError(t, ForceStand(r, t0))

	assert.Equal(t, domain.InsuranceDeclined, r.State.Insurance)
	assert.Equal(t, domain.RoundStatusCompleted, r.Status)
	assert.Equal(t, int64(100), r.Summary.TotalNet)
}

func TestSettledRound_InvalidTransition(t *testing.T) {
	r := dealRound(t, "TS 6H 7D 5C 7S", 100)
	apply(t, r, domain.ActionStand)
	r.Status = domain.RoundStatusSettled

	_, err := Check(r, domain.Action{Kind: domain.ActionHit})
	assert.True(t, apperror.HasCode(err, apperror.CodeInvalidTransition))
	assert.True(t, apperror.HasCode(ForceStand(r, t0), apperror.CodeInvalidTransition))
}

func TestSystemActionsRejected(t *testing.T) {
	r := dealRound(t, "TS 6H 7D 5C", 100)
	assertIllegal(t, r, domain.Action{Kind: domain.ActionDealerDraw})
}

func TestReject_RecordsWithoutStateChange(t *testing.T) {
	r := dealRound(t, "TS 6H 7D 5C", 100)
	hash := r.StateHash()
	n := len(r.History)

	Reject(r, domain.Action{Kind: domain.ActionSplit}, "split requires an untouched pair", t0)

	assert.Equal(t, hash, r.StateHash())
	require.Len(t, r.History, n+1)
	last := r.History[n]
	assert.True(t, last.Rejected)
	assert.Equal(t, domain.ActionSplit, last.Kind)
	assert.Equal(t, n+1, last.Seq)
}

func TestLegalActions(t *testing.T) {
	r := dealRound(t, "8S 6H 8D TC", 100)
	assert.ElementsMatch(t,
		[]domain.ActionKind{domain.ActionHit, domain.ActionStand, domain.ActionDouble, domain.ActionSplit},
		LegalActions(r))

	offered := dealRound(t, "TS AH 9D 7C", 100)
	assert.ElementsMatch(t,
		[]domain.ActionKind{domain.ActionInsurance, domain.ActionDeclineInsurance},
		LegalActions(offered))
}

func TestHistory_IsAppendOnlyWithStateHashes(t *testing.T) {
	r := dealRound(t, "TS 6H 7D 5C 7S", 100)
	apply(t, r, domain.ActionStand)

	require.NotEmpty(t, r.History)
	for i, rec := range r.History {
		assert.Equal(t, i+1, rec.Seq)
		assert.Len(t, rec.StateHash, 64)
	}
	assert.Equal(t, domain.ActionDeal, r.History[0].Kind)
	assert.Equal(t, domain.ActionComplete, r.History[len(r.History)-1].Kind)
}

func TestDeal_ShortShoe(t *testing.T) {
	cards, err := domain.ParseCards("TS 6H 7D")
	require.NoError(t, err)
	r := &domain.Round{Status: domain.RoundStatusPlayerTurn, BetAmount: 100, Shoe: cards, Table: domain.DefaultTableConfig()}
	assert.ErrorIs(t, Deal(r, t0), domain.ErrShoeExhausted)
}

func TestDeal_Twice(t *testing.T) {
	r := dealRound(t, "TS 6H 7D 5C", 100)
	assert.True(t, apperror.HasCode(Deal(r, t0), apperror.CodeInvalidTransition))
}

func TestMarkSettled(t *testing.T) {
	r := dealRound(t, "AS 9H KD 8C", 500)
	require.Equal(t, domain.RoundStatusCompleted, r.Status)

	at := t0.Add(time.Minute)
	require.NoError(t, MarkSettled(r, at))
	assert.Equal(t, domain.RoundStatusSettled, r.Status)
	require.NotNil(t, r.SettledAt)
	assert.Equal(t, at, *r.SettledAt)

	last := r.History[len(r.History)-1]
	assert.Equal(t, domain.ActionSettle, last.Kind)
	assert.Equal(t, int64(750), last.Amount)

	err := MarkSettled(r, at)
	assert.True(t, apperror.HasCode(err, apperror.CodeInvalidTransition))
}

func TestMarkSettled_OpenRound(t *testing.T) {
	r := dealRound(t, "TS 6H 7D 5C 7S", 1000)

	err := MarkSettled(r, t0)
	assert.True(t, apperror.HasCode(err, apperror.CodeInvalidTransition))
	assert.Equal(t, domain.RoundStatusPlayerTurn, r.Status)
}
