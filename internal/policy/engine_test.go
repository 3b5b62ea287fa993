package policy

import (
	"context"
	"testing"
)

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	engine, err := NewEngine(context.Background(), DefaultPolicy)
	if err != nil {
		t.Fatalf("failed to create engine: %v", err)
	}
	return engine
}

func TestContainsAdvice(t *testing.T) {
	engine := newTestEngine(t)
	ctx := context.Background()

	tests := []struct {
		name  string
		reply string
		want  bool
	}{
		{"explicit suggestion", "我建议您减少糖分摄入", true},
		{"recommendation", "推荐多吃粗粮", true},
		{"try phrasing", "可以尝试早餐加一个鸡蛋", true},
		{"should phrasing", "您应该规律进食", true},
		{"nutrition keyword", "注意营养均衡很重要", true},
		{"health keyword", "保持健康的作息", true},
		{"diet plan keyword", "为您制定饮食计划", true},
		{"plain chat", "哈哈，好的", false},
		{"empty reply", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := engine.ContainsAdvice(ctx, tt.reply); got != tt.want {
				t.Fatalf("ContainsAdvice(%q) = %v, want %v", tt.reply, got, tt.want)
			}
		})
	}
}

func TestNewEngineRejectsBadPolicy(t *testing.T) {
	if _, err := NewEngine(context.Background(), "package advice_policy\n\ndecision := "); err == nil {
		t.Fatal("expected error for malformed policy")
	}
}
