package ai

import (
	"fmt"
	"strings"

	"github.com/nutrichat/nutrichat/internal/domain"
)

// historyWindow is the number of trailing conversation messages included in
// the prompt. Older messages are dropped to bound token usage.
const historyWindow = 5

// systemPrompt is the fixed persona for every backend.
const systemPrompt = `你是一位专业的营养师和健康顾问，专注于：
1. 提供科学的饮食建议和膳食规划
2. 根据用户的健康目标定制个性化建议
3. 解答营养相关问题，澄清饮食误区
4. 推荐健康的食谱和食物替代品
5. 鼓励建立健康、可持续的饮食习惯

在回答问题时，请注意：
- 始终基于科学依据提供建议，引用可靠的营养学知识
- 避免极端饮食建议，提倡均衡饮食
- 考虑用户的个人情况和偏好
- 使用友好、鼓励性的语气
- 保持回答简洁、实用且易于理解

专注于中国饮食文化和健康理念，尊重传统食疗理念，同时结合现代营养学知识。
如果用户询问与饮食无关的话题，礼貌地将对话引导回健康饮食相关的内容。`

// truncateHistory keeps the last historyWindow messages in chronological
// order.
func truncateHistory(history []domain.Message) []domain.Message {
	if len(history) <= historyWindow {
		return history
	}
	return history[len(history)-historyWindow:]
}

// formatHistory converts the truncated conversation history into wire
// messages, each tagged with its sender role.
func formatHistory(history []domain.Message) []chatMessage {
	recent := truncateHistory(history)
	messages := make([]chatMessage, 0, len(recent))
	for _, msg := range recent {
		role := "assistant"
		if msg.Sender == domain.SenderUser {
			role = "user"
		}
		messages = append(messages, chatMessage{Role: role, Content: msg.Content})
	}
	return messages
}

// buildTurnPrompt serializes the turn context and the new user message into
// the final user-role prompt.
func buildTurnPrompt(userMessage string, turnCtx *TurnContext) string {
	var b strings.Builder
	b.WriteString(renderContext(turnCtx))
	b.WriteString("\n用户问题: ")
	b.WriteString(userMessage)
	b.WriteString("\n\n请提供一个有帮助的、针对性的响应，专注于饮食健康。\n")
	return b.String()
}

// renderContext produces the textual rendering of the turn context shared by
// all backends.
func renderContext(turnCtx *TurnContext) string {
	var b strings.Builder

	b.WriteString("用户信息:\n")
	target := 2000
	current := 0
	if turnCtx != nil {
		if turnCtx.TargetCalories > 0 {
			target = turnCtx.TargetCalories
		}
		current = turnCtx.CurrentCalories
	}
	fmt.Fprintf(&b, "- 目标卡路里: %d 卡路里/天\n", target)
	fmt.Fprintf(&b, "- 当前卡路里摄入: %d 卡路里\n", current)

	var user *domain.User
	if turnCtx != nil {
		user = turnCtx.User
	}
	if user != nil && len(user.DietaryPreferences) > 0 {
		fmt.Fprintf(&b, "- 饮食偏好: %s\n", strings.Join(user.DietaryPreferences, ", "))
	} else {
		b.WriteString("- 饮食偏好: 无特殊偏好\n")
	}
	if user != nil && len(user.HealthGoals) > 0 {
		fmt.Fprintf(&b, "- 健康目标: %s\n", strings.Join(user.HealthGoals, ", "))
	} else {
		b.WriteString("- 健康目标: 保持健康\n")
	}
	if user != nil && len(user.Allergens) > 0 {
		fmt.Fprintf(&b, "- 食物过敏: %s\n", strings.Join(user.Allergens, ", "))
	} else {
		b.WriteString("- 食物过敏: 无\n")
	}

	b.WriteString("\n今日食物:\n")
	if turnCtx != nil && len(turnCtx.TodaysFoods) > 0 {
		for _, food := range turnCtx.TodaysFoods {
			fmt.Fprintf(&b, "- %s: %d 卡路里 (%s)\n", food.Name, food.Calories, food.LoggedAt.Format("15:04:05"))
		}
	} else {
		b.WriteString("- 今天还没有记录食物\n")
	}
	return b.String()
}

// buildDailyAdvicePrompt is the analysis prompt used for the daily advice
// generation.
func buildDailyAdvicePrompt(user *domain.User, recentFoods []domain.FoodEntry) string {
	var b strings.Builder
	b.WriteString("分析以下用户的饮食情况并提供今日建议：\n\n用户信息:\n")

	target := 2000
	if user != nil && user.DailyCalorieGoal > 0 {
		target = user.DailyCalorieGoal
	}
	fmt.Fprintf(&b, "- 目标卡路里: %d 卡路里/天\n", target)
	if user != nil && len(user.DietaryPreferences) > 0 {
		fmt.Fprintf(&b, "- 饮食偏好: %s\n", strings.Join(user.DietaryPreferences, ", "))
	} else {
		b.WriteString("- 饮食偏好: 无特殊偏好\n")
	}
	if user != nil && len(user.HealthGoals) > 0 {
		fmt.Fprintf(&b, "- 健康目标: %s\n", strings.Join(user.HealthGoals, ", "))
	} else {
		b.WriteString("- 健康目标: 保持健康\n")
	}

	b.WriteString("\n最近饮食记录:\n")
	if len(recentFoods) == 0 {
		b.WriteString("- 暂无记录\n")
	}
	for _, food := range recentFoods {
		fmt.Fprintf(&b, "- %s: %s, %d卡路里\n", food.LoggedAt.Format("2006-01-02"), food.Name, food.Calories)
	}

	b.WriteString("\n请提供：\n1. 简短的饮食建议\n2. 具体的今日饮食计划建议\n3. 需要注意的饮食事项\n")
	return b.String()
}
