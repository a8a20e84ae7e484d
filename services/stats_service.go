package services

import (
	"math"
	"time"

	"referral-program-server/models"

	"gorm.io/gorm"
)

// StatsService derives read-only metrics from the persisted counters. It
// never mutates state. The "weekly" and trend figures are synthesized from
// current totals — no historical samples exist — and the formulas are part
// of the API contract, so resist the urge to make them real.
type StatsService struct {
	DB *gorm.DB
}

func NewStatsService(db *gorm.DB) *StatsService {
	return &StatsService{DB: db}
}

const (
	earningsPerConversion = 15
	revenuePerClick       = 10
	weeklyClicksFactor    = 0.3
	weeklyGrowthPercent   = 12.5
	trendDays             = 7
	trendPeriod           = "Last 7 days"
)

type UserStats struct {
	TotalClicks      int64   `json:"totalClicks"`
	TotalConversions int64   `json:"totalConversions"`
	ConversionRate   float64 `json:"conversionRate"`
	ActiveLinks      int64   `json:"activeLinks"`
	Earnings         int64   `json:"earnings"`
	WeeklyClicks     int64   `json:"weeklyClicks"`
	WeeklyGrowth     float64 `json:"weeklyGrowth"`
	ReferralsCount   int64   `json:"referralsCount"`
	TotalLinks       int64   `json:"totalLinks"`
}

// linkTotals sums the denormalized counters across every link the user owns,
// active or not. Deactivated links keep contributing to lifetime totals.
func (s *StatsService) linkTotals(userID uint) (clicks, conversions int64, err error) {
	row := struct {
		Clicks      int64
		Conversions int64
	}{}
	err = s.DB.Model(&models.ReferralLink{}).
		Select("COALESCE(SUM(clicks), 0) AS clicks, COALESCE(SUM(conversions), 0) AS conversions").
		Where("user_id = ?", userID).
		Scan(&row).Error
	return row.Clicks, row.Conversions, err
}

func conversionRate(clicks, conversions int64) float64 {
	if clicks == 0 {
		return 0
	}
	rate := float64(conversions) / float64(clicks) * 100
	// Ties round to even: 12.25 reports as 12.2
	return math.RoundToEven(rate*10) / 10
}

func (s *StatsService) UserStats(userID uint) (*UserStats, error) {
	totalClicks, totalConversions, err := s.linkTotals(userID)
	if err != nil {
		return nil, err
	}

	var totalLinks, activeLinks, referralsCount int64
	if err := s.DB.Model(&models.ReferralLink{}).Where("user_id = ?", userID).Count(&totalLinks).Error; err != nil {
		return nil, err
	}
	if err := s.DB.Model(&models.ReferralLink{}).Where("user_id = ? AND is_active = ?", userID, true).Count(&activeLinks).Error; err != nil {
		return nil, err
	}
	if err := s.DB.Model(&models.User{}).Where("referred_by = ?", userID).Count(&referralsCount).Error; err != nil {
		return nil, err
	}

	return &UserStats{
		TotalClicks:      totalClicks,
		TotalConversions: totalConversions,
		ConversionRate:   conversionRate(totalClicks, totalConversions),
		ActiveLinks:      activeLinks,
		Earnings:         totalConversions * earningsPerConversion,
		WeeklyClicks:     int64(float64(totalClicks) * weeklyClicksFactor),
		WeeklyGrowth:     weeklyGrowthPercent,
		ReferralsCount:   referralsCount,
		TotalLinks:       totalLinks,
	}, nil
}

type TrendSeries struct {
	Data       []int64 `json:"data"`
	Period     string  `json:"period"`
	Change     float64 `json:"change"`
	ChangeType string  `json:"changeType"`
}

type UserTrends struct {
	Clicks         TrendSeries `json:"clicks"`
	Conversions    TrendSeries `json:"conversions"`
	Earnings       TrendSeries `json:"earnings"`
	ConversionRate TrendSeries `json:"conversionRate"`
}

func flatSeries(value int64) []int64 {
	data := make([]int64, trendDays)
	for i := range data {
		data[i] = value
	}
	return data
}

// synthSeries spreads a per-day average across the window with a fixed
// oscillation pattern. Deterministic on purpose: same totals, same chart.
func synthSeries(perDay float64, multiplier func(i int) float64) []int64 {
	data := make([]int64, trendDays)
	if perDay == 0 {
		return data
	}
	for i := range data {
		v := int64(perDay * multiplier(i))
		if v < 0 {
			v = 0
		}
		data[i] = v
	}
	return data
}

// Period-3 oscillation of ±20% used for per-user series.
func userMultiplier(i int) float64 {
	return 0.8 + float64(i%3)*0.2
}

// Period-2 oscillation used for platform-wide series.
func platformMultiplier(i int) float64 {
	return 0.9 + float64(i%2)*0.2
}

func neutralSeries() TrendSeries {
	return TrendSeries{Data: flatSeries(0), Period: trendPeriod, Change: 0, ChangeType: "neutral"}
}

func changeFor(total float64, change float64) (float64, string) {
	if total > 0 {
		return change, "positive"
	}
	return 0, "neutral"
}

func (s *StatsService) UserTrends(userID uint) (*UserTrends, error) {
	totalClicks, totalConversions, err := s.linkTotals(userID)
	if err != nil {
		return nil, err
	}

	if totalClicks == 0 && totalConversions == 0 {
		return &UserTrends{
			Clicks:         neutralSeries(),
			Conversions:    neutralSeries(),
			Earnings:       neutralSeries(),
			ConversionRate: neutralSeries(),
		}, nil
	}

	earnings := totalConversions * earningsPerConversion

	// The trend series consumes the raw rate; only UserStats reports the
	// rounded one. Rounding first would flip the series across an integer
	// boundary (e.g. 7.959 → 8) and report a tiny non-zero rate as neutral.
	rate := float64(0)
	if totalClicks > 0 {
		rate = float64(totalConversions) / float64(totalClicks) * 100
	}

	clicksChange, clicksType := changeFor(float64(totalClicks), 5.0)
	convChange, convType := changeFor(float64(totalConversions), 3.0)
	earnChange, earnType := changeFor(float64(earnings), 8.0)
	rateChange, rateType := changeFor(rate, 2.0)

	return &UserTrends{
		Clicks: TrendSeries{
			Data:       synthSeries(float64(totalClicks)/trendDays, userMultiplier),
			Period:     trendPeriod,
			Change:     clicksChange,
			ChangeType: clicksType,
		},
		Conversions: TrendSeries{
			Data:       synthSeries(float64(totalConversions)/trendDays, userMultiplier),
			Period:     trendPeriod,
			Change:     convChange,
			ChangeType: convType,
		},
		Earnings: TrendSeries{
			Data:       synthSeries(float64(earnings)/trendDays, userMultiplier),
			Period:     trendPeriod,
			Change:     earnChange,
			ChangeType: earnType,
		},
		// The rate has no meaningful daily spread; the series is the
		// single current rate repeated.
		ConversionRate: TrendSeries{
			Data:       flatSeries(int64(rate)),
			Period:     trendPeriod,
			Change:     rateChange,
			ChangeType: rateType,
		},
	}, nil
}

type PlatformTrends struct {
	Revenue    TrendSeries `json:"revenue"`
	Users      TrendSeries `json:"users"`
	Referrals  TrendSeries `json:"referrals"`
	Engagement TrendSeries `json:"engagement"`
}

func (s *StatsService) PlatformTrends() (*PlatformTrends, error) {
	var totalUsers, totalReferralLinks int64
	if err := s.DB.Model(&models.User{}).Count(&totalUsers).Error; err != nil {
		return nil, err
	}
	if err := s.DB.Model(&models.ReferralLink{}).Count(&totalReferralLinks).Error; err != nil {
		return nil, err
	}

	var totalClicks int64
	row := struct{ Clicks int64 }{}
	if err := s.DB.Model(&models.ReferralLink{}).
		Select("COALESCE(SUM(clicks), 0) AS clicks").
		Scan(&row).Error; err != nil {
		return nil, err
	}
	totalClicks = row.Clicks
	totalRevenue := totalClicks * revenuePerClick

	var activeUsers int64
	if err := s.DB.Model(&models.User{}).
		Joins("JOIN referral_links ON referral_links.user_id = users.id").
		Distinct("users.id").
		Count(&activeUsers).Error; err != nil {
		return nil, err
	}
	engagementRate := float64(0)
	if totalUsers > 0 {
		engagementRate = float64(activeUsers) / float64(totalUsers) * 100
	}

	usersSeries := TrendSeries{
		Data:       flatSeries(totalUsers),
		Period:     trendPeriod,
		Change:     0,
		ChangeType: "neutral",
	}

	if totalClicks == 0 && totalReferralLinks == 0 {
		return &PlatformTrends{
			Revenue:   neutralSeries(),
			Users:     usersSeries,
			Referrals: neutralSeries(),
			Engagement: TrendSeries{
				Data:       flatSeries(int64(engagementRate)),
				Period:     trendPeriod,
				Change:     0,
				ChangeType: "neutral",
			},
		}, nil
	}

	revChange, revType := changeFor(float64(totalRevenue), 5.0)
	refChange, refType := changeFor(float64(totalReferralLinks), 8.0)
	engChange, engType := changeFor(engagementRate, 2.0)

	return &PlatformTrends{
		Revenue: TrendSeries{
			Data:       synthSeries(float64(totalRevenue)/trendDays, platformMultiplier),
			Period:     trendPeriod,
			Change:     revChange,
			ChangeType: revType,
		},
		Users: usersSeries,
		Referrals: TrendSeries{
			Data:       synthSeries(float64(totalReferralLinks)/trendDays, platformMultiplier),
			Period:     trendPeriod,
			Change:     refChange,
			ChangeType: refType,
		},
		Engagement: TrendSeries{
			Data:       flatSeries(int64(engagementRate)),
			Period:     trendPeriod,
			Change:     engChange,
			ChangeType: engType,
		},
	}, nil
}

// Achievement is a fixed-threshold badge computed live from current counts.
// Nothing is persisted; completing one and losing it again cannot happen
// because the underlying counters never decrease.
type Achievement struct {
	ID          int    `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Completed   bool   `json:"completed"`
	Icon        string `json:"icon"`
	Reward      string `json:"reward"`
	Progress    *int64 `json:"progress,omitempty"`
}

func progressToward(count, threshold int64) *int64 {
	p := count
	if p > threshold {
		p = threshold
	}
	return &p
}

func (s *StatsService) Achievements(userID uint) ([]Achievement, error) {
	var referralsCount int64
	if err := s.DB.Model(&models.User{}).Where("referred_by = ?", userID).Count(&referralsCount).Error; err != nil {
		return nil, err
	}
	totalClicks, _, err := s.linkTotals(userID)
	if err != nil {
		return nil, err
	}

	return []Achievement{
		{
			ID:          1,
			Title:       "First Referral",
			Description: "Made your first successful referral",
			Completed:   referralsCount >= 1,
			Icon:        "🎯",
			Reward:      "$10",
		},
		{
			ID:          2,
			Title:       "Network Builder",
			Description: "Referred 5 people",
			Completed:   referralsCount >= 5,
			Icon:        "🏗️",
			Reward:      "$50",
			Progress:    progressToward(referralsCount, 5),
		},
		{
			ID:          3,
			Title:       "Super Referrer",
			Description: "Referred 10 people",
			Completed:   referralsCount >= 10,
			Icon:        "⭐",
			Reward:      "$100",
			Progress:    progressToward(referralsCount, 10),
		},
		{
			ID:          4,
			Title:       "Elite Member",
			Description: "Referred 25 people",
			Completed:   referralsCount >= 25,
			Icon:        "👑",
			Reward:      "$250",
			Progress:    progressToward(referralsCount, 25),
		},
		{
			ID:          5,
			Title:       "Click Master",
			Description: "Generated 100 clicks on your links",
			Completed:   totalClicks >= 100,
			Icon:        "🖱️",
			Reward:      "$25",
			Progress:    progressToward(totalClicks, 100),
		},
	}, nil
}

// NetworkMember is one direct referral plus how many people they referred
// in turn. One level only — the tree is never walked transitively.
type NetworkMember struct {
	ID        uint      `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Referrals int64     `json:"referrals"`
	Joined    time.Time `json:"joined"`
	Status    string    `json:"status"`
}

func (s *StatsService) Network(userID uint) ([]NetworkMember, error) {
	var referred []models.User
	if err := s.DB.Where("referred_by = ?", userID).Find(&referred).Error; err != nil {
		return nil, err
	}

	network := make([]NetworkMember, 0, len(referred))
	for _, u := range referred {
		var subReferrals int64
		if err := s.DB.Model(&models.User{}).Where("referred_by = ?", u.ID).Count(&subReferrals).Error; err != nil {
			return nil, err
		}
		network = append(network, NetworkMember{
			ID:        u.ID,
			Name:      u.Username,
			Email:     u.Email,
			Referrals: subReferrals,
			Joined:    u.CreatedAt,
			Status:    "active",
		})
	}
	return network, nil
}
