package ai

import (
	"context"
	"strings"

	"github.com/nutrichat/nutrichat/internal/domain"
)

// mockRule pairs a keyword predicate with its canned reply. Rules are
// evaluated in order; the first match wins.
type mockRule struct {
	keywords   []string
	message    string
	withAdvice bool
}

const (
	suggestionReply = "建议您多摄入蔬菜水果，适量增加优质蛋白质的摄入，如鸡胸肉、鱼类和豆制品。减少精制碳水化合物和油炸食品的摄入量。每日饮水量保持在1.5-2升左右。餐前可以喝一杯温水，有助于增加饱腹感，控制食量。"
	calorieReply    = "控制卡路里摄入是健康饮食的重要部分。每个人需要的卡路里量根据年龄、性别、体重和活动水平而不同。一般成年人每日需要约2000-2500卡路里。建议记录每日摄入的食物，以便更好地跟踪卡路里摄入量。减肥期间可以适当控制在基础代谢率以下300-500卡路里。"
	weightLossReply = "健康减肥需要平衡的饮食和适当的运动。建议增加蛋白质摄入，控制碳水化合物，多吃纤维素丰富的食物如蔬菜和全谷物。每周进行至少150分钟的中等强度有氧运动，配合力量训练。中国传统的食疗理念也很有帮助，如食用山药、薏米等食材。切忌极端节食，那会损害健康并导致反弹。"
	greetingReply   = "你好！我是你的健康饮食助手。我可以提供饮食建议、分析营养需求，并帮助你制定健康的饮食计划。有什么我可以帮到你的吗？比如你可以询问今天吃什么、如何健康减肥、或者特定食物的营养价值。"
	defaultReply    = "感谢您的咨询。作为您的营养顾问，我建议您保持均衡饮食，确保每餐都包含蛋白质、复合碳水化合物和健康脂肪。您有具体的饮食问题想要了解吗？我可以为您提供更有针对性的建议。"

	defaultDailyAdvice = "今天尝试增加更多蔬菜摄入，确保蛋白质足够，适当控制精制碳水化合物。多喝水，少吃油炸食品。"
)

// mockRules is the ordered rule table for the offline responder. Priority
// order decides conflicts, not specificity.
var mockRules = []mockRule{
	{keywords: []string{"吃什么", "建议"}, message: suggestionReply, withAdvice: true},
	{keywords: []string{"卡路里", "热量"}, message: calorieReply},
	{keywords: []string{"减肥", "瘦"}, message: weightLossReply, withAdvice: true},
	{keywords: []string{"你好", "嗨", "hi"}, message: greetingReply},
}

// Simulated is the deterministic, network-free responder. It backs the
// simulated deployment mode and serves as the fallback when the real backend
// is unconfigured or unreachable.
type Simulated struct{}

// NewSimulated creates the offline responder.
func NewSimulated() *Simulated {
	return &Simulated{}
}

// GenerateReply applies ordered keyword matching against the lower-cased
// user message. History and context are accepted for interface parity but do
// not influence the canned replies.
func (s *Simulated) GenerateReply(_ context.Context, userMessage string, _ []domain.Message, _ *TurnContext) *Reply {
	lower := strings.ToLower(userMessage)

	for _, rule := range mockRules {
		if !matchesAny(lower, rule.keywords) {
			continue
		}
		reply := &Reply{Message: rule.message}
		if rule.withAdvice {
			reply.Advice = &AdviceSuggestion{
				Type:           domain.AdviceTypeResponse,
				Content:        rule.message,
				RelatedFoodIDs: []string{},
			}
		}
		return reply
	}

	return &Reply{Message: defaultReply}
}

// GenerateDailyAdvice returns the fixed default daily tip.
func (s *Simulated) GenerateDailyAdvice(_ context.Context, _ *domain.User, _ []domain.FoodEntry) *Reply {
	return &Reply{
		Message: defaultDailyAdvice,
		Advice: &AdviceSuggestion{
			Type:           domain.AdviceTypeDaily,
			Content:        defaultDailyAdvice,
			RelatedFoodIDs: []string{},
		},
	}
}

func matchesAny(message string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(message, kw) {
			return true
		}
	}
	return false
}
