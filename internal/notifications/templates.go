package notifications

import (
	"fmt"
	"strconv"

	"github.com/macchain/backend/internal/models"
)

// Content is the rendered copy of a notification
type Content struct {
	Title    string
	Message  string
	Priority string
}

// Render builds the title, message and priority for a notification type
func Render(notificationType string, data map[string]interface{}) Content {
	switch notificationType {
	case models.NotificationReadingReminder:
		return Content{
			Title:    "성경 읽기 시간입니다!",
			Message:  "오늘의 읽기 계획을 확인해보세요.",
			Priority: models.PriorityHigh,
		}
	case models.NotificationStreakMilestone:
		return Content{
			Title:    "연속 읽기 달성!",
			Message:  fmt.Sprintf("축하합니다! %s일 연속으로 성경을 읽고 있습니다.", number(data, "days")),
			Priority: models.PriorityHigh,
		}
	case models.NotificationWeeklySummary:
		return Content{
			Title:    "주간 읽기 요약",
			Message:  fmt.Sprintf("이번 주에 %s개의 읽기 계획을 완료했습니다.", number(data, "completedReadings")),
			Priority: models.PriorityNormal,
		}
	case models.NotificationAIAnalysisReady:
		return Content{
			Title:    "AI 분석 완료",
			Message:  "요청하신 성경 구절 분석이 완료되었습니다.",
			Priority: models.PriorityNormal,
		}
	case models.NotificationCommunityInteraction:
		return Content{
			Title:    "커뮤니티 활동",
			Message:  text(data, "message", "새로운 커뮤니티 활동이 있습니다."),
			Priority: models.PriorityLow,
		}
	default:
		return Content{
			Title:    "새로운 알림",
			Message:  text(data, "message", "새로운 알림이 있습니다."),
			Priority: models.PriorityNormal,
		}
	}
}

// number formats data[key] as an integer, or "0" when absent
func number(data map[string]interface{}, key string) string {
	switch v := data[key].(type) {
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case float64:
		return strconv.FormatInt(int64(v), 10)
	case string:
		if v != "" {
			return v
		}
	}
	return "0"
}

func text(data map[string]interface{}, key, fallback string) string {
	if s, ok := data[key].(string); ok && s != "" {
		return s
	}
	return fallback
}
