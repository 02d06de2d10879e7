// Package catalog holds the static reference data loaded at startup:
// the counterpart directory, gifts, recharge and membership packages.
package catalog

import (
	"errors"
	"fmt"
	"strings"

	"github.com/oggyb/miahui/internal/model"
)

var (
	ErrUnknownCounterpart = errors.New("unknown counterpart")
	ErrUnknownGift        = errors.New("unknown gift")
	ErrUnknownPackage     = errors.New("unknown package")
)

// InterestTags offered by the profile editor.
var InterestTags = []string{
	"音乐", "摄影", "旅行", "美食", "健身",
	"游戏", "阅读", "电影", "猫派", "狗派",
	"艺术", "时尚", "科技", "二次元", "剧本杀",
	"K歌", "咖啡", "露营", "瑜伽", "发呆",
}

// QuickGreetings shown on the user details screen.
var QuickGreetings = []string{"Hi~ 👋", "交个朋友？", "视频聊聊？", "刚才在看你 ✨"}

var counterparts = []model.Counterpart{
	{
		ID: "1", Name: "林苏", Age: 22, City: "上海",
		AvatarRef:    "https://picsum.photos/seed/user1/400/600",
		Tags:         []string{"音乐", "摄影", "猫派"},
		Bio:          "想遇到一个灵魂有趣的人，一起看日落。",
		ResponseRate: "99%", Gender: "女", Education: "硕士",
		Height: "168cm", Weight: "48kg", Income: "20W+", Profession: "插画师",
		Online: true,
	},
	{
		ID: "2", Name: "陈若熙", Age: 24, City: "杭州",
		AvatarRef:    "https://picsum.photos/seed/user2/400/600",
		Tags:         []string{"运动", "旅游", "吃货"},
		Bio:          "生活不是为了工作，是为了看世界。",
		ResponseRate: "100%", Gender: "女", Education: "本科",
		Height: "165cm", Weight: "50kg", Income: "15W+", Profession: "空乘",
		Online: true,
	},
	{
		ID: "3", Name: "夏语星", Age: 21, City: "成都",
		AvatarRef:    "https://picsum.photos/seed/user3/400/600",
		Tags:         []string{"游戏", "动漫", "二次元"},
		Bio:          "希望你也喜欢原神和周杰伦！",
		ResponseRate: "98%", Gender: "女", Education: "在大专",
		Height: "162cm", Weight: "45kg", Income: "保密", Profession: "自由职业",
		Online: true,
	},
	{
		ID: "4", Name: "陆清漪", Age: 23, City: "北京",
		AvatarRef:    "https://picsum.photos/seed/user4/400/600",
		Tags:         []string{"职场", "读书", "健身"},
		Bio:          "在这个喧嚣的城市，寻找一份宁静。",
		ResponseRate: "97%", Gender: "女", Education: "本科",
		Height: "172cm", Weight: "52kg", Income: "40W+", Profession: "金融分析师",
		Online: true,
	},
}

var gifts = []model.Gift{
	{ID: "g1", Name: "玫瑰", IconRef: "🌹", BasePrice: 1, Category: model.GiftPopular},
	{ID: "g2", Name: "爱心", IconRef: "❤️", BasePrice: 5, Category: model.GiftPopular},
	{ID: "g3", Name: "棒棒糖", IconRef: "🍭", BasePrice: 10, Category: model.GiftPopular},
	{ID: "g8", Name: "独角兽", IconRef: "🦄", BasePrice: 66, Category: model.GiftPopular},
	{ID: "g4", Name: "钻戒", IconRef: "💍", BasePrice: 199, Category: model.GiftLuxury},
	{ID: "g5", Name: "跑车", IconRef: "🏎️", BasePrice: 520, Category: model.GiftLuxury},
	{ID: "g6", Name: "火箭", IconRef: "🚀", BasePrice: 1314, Category: model.GiftLuxury},
	{ID: "g7", Name: "心动烟花", IconRef: "🎆", BasePrice: 188, Category: model.GiftSpecial},
	{ID: "g9", Name: "皇冠", IconRef: "👑", BasePrice: 299, Category: model.GiftSpecial},
	{ID: "g10", Name: "城堡", IconRef: "🏰", BasePrice: 2000, Category: model.GiftLuxury},
	{ID: "g11", Name: "干杯", IconRef: "🍻", BasePrice: 20, Category: model.GiftPopular},
	{ID: "g12", Name: "流星", IconRef: "💫", BasePrice: 88, Category: model.GiftSpecial},
}

var rechargePackages = []model.RechargePackage{
	{ID: "p1", Coins: 60, Price: 6},
	{ID: "p2", Coins: 300, Price: 30},
	{ID: "p3", Coins: 680, Price: 68, Hot: true},
	{ID: "p4", Coins: 1280, Price: 128},
	{ID: "p5", Coins: 3280, Price: 328},
	{ID: "p6", Coins: 6480, Price: 648},
}

var membershipPackages = []model.MembershipPackage{
	{
		ID: "m1", Name: "月度会员", Duration: "1个月", Price: 30, OriginalPrice: 45,
		Tier:     model.TierBasic,
		Benefits: []string{"基础VIP标识", "HD视频通话", "礼物95折优惠", "优先匹配(30%)"},
	},
	{
		ID: "m2", Name: "季度会员", Duration: "3个月", Price: 68, OriginalPrice: 135,
		BestValue: true,
		Tier:      model.TierPro,
		Benefits:  []string{"黄金VIP标识", "HD视频通话", "礼物85折优惠", "不限次匹配", "隐身模式", "优先匹配(100%)"},
	},
	{
		ID: "m3", Name: "年度会员", Duration: "12个月", Price: 198, OriginalPrice: 540,
		Tier:     model.TierElite,
		Benefits: []string{"铂金至尊标识", "4K极致画质", "礼物8折优惠", "独家精英礼物", "瞬间匹配(300%)", "专属管家服务"},
	},
}

// Counterparts returns a copy of the directory.
func Counterparts() []model.Counterpart {
	return append([]model.Counterpart(nil), counterparts...)
}

// Counterpart looks up a directory entry by id. Discovery card ids
// ("disc-<n>") resolve to the entry they were built from.
func Counterpart(id string) (model.Counterpart, error) {
	if src, ok := discoverySource(id); ok {
		id = src
	}
	for _, c := range counterparts {
		if c.ID == id {
			return c, nil
		}
	}
	return model.Counterpart{}, fmt.Errorf("%w: %s", ErrUnknownCounterpart, id)
}

// Search returns the first counterpart whose name contains query or whose id equals it.
func Search(query string) (model.Counterpart, bool) {
	query = strings.TrimSpace(query)
	if query == "" {
		return model.Counterpart{}, false
	}
	for _, c := range counterparts {
		if strings.Contains(c.Name, query) || c.ID == query {
			return c, true
		}
	}
	return model.Counterpart{}, false
}

// Gifts returns the full gift catalog in display order.
func Gifts() []model.Gift {
	return append([]model.Gift(nil), gifts...)
}

// GiftsByCategory filters the catalog for one gift panel tab.
func GiftsByCategory(cat model.GiftCategory) []model.Gift {
	var out []model.Gift
	for _, g := range gifts {
		if g.Category == cat {
			out = append(out, g)
		}
	}
	return out
}

// Gift looks up a gift by id.
func Gift(id string) (model.Gift, error) {
	for _, g := range gifts {
		if g.ID == id {
			return g, nil
		}
	}
	return model.Gift{}, fmt.Errorf("%w: %s", ErrUnknownGift, id)
}

// RechargePackages returns the wallet top-up options.
func RechargePackages() []model.RechargePackage {
	return append([]model.RechargePackage(nil), rechargePackages...)
}

// RechargePackage looks up a top-up option by id.
func RechargePackage(id string) (model.RechargePackage, error) {
	for _, p := range rechargePackages {
		if p.ID == id {
			return p, nil
		}
	}
	return model.RechargePackage{}, fmt.Errorf("%w: %s", ErrUnknownPackage, id)
}

// MembershipPackages returns the subscription options.
func MembershipPackages() []model.MembershipPackage {
	return append([]model.MembershipPackage(nil), membershipPackages...)
}

// MembershipPackage looks up a subscription option by id.
func MembershipPackage(id string) (model.MembershipPackage, error) {
	for _, p := range membershipPackages {
		if p.ID == id {
			return p, nil
		}
	}
	return model.MembershipPackage{}, fmt.Errorf("%w: %s", ErrUnknownPackage, id)
}

// DefaultProfile is the built-in persona used on first run and after account deletion.
func DefaultProfile() model.Profile {
	return model.Profile{
		DisplayName: "阿正",
		AvatarRef:   "https://picsum.photos/seed/myself/300/300",
		PhotoRefs: []string{
			"https://picsum.photos/seed/p1/600/800",
			"https://picsum.photos/seed/p2/600/800",
			"https://picsum.photos/seed/p3/600/800",
		},
		InterestTags: []string{"音乐", "摄影", "猫派"},
		City:         "上海",
		Bio:          "不喜欢客套，只喜欢在这里和你‘秒回’视频。愿在平行时空遇到有趣的你。✨",
		Gender:       "男",
		Age:          26,
		Education:    "本科",
		Height:       "182cm",
		Weight:       "75kg",
		Income:       "30W+",
		Profession:   "UI设计师",
	}
}
