// Package seed fills a database with readers, reading history and
// community activity for development and end-to-end tests.
package seed

import (
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/macchain/backend/internal/bible"
	"github.com/macchain/backend/internal/logger"
	"github.com/macchain/backend/internal/models"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SeedEmailDomain marks rows the seeder owns; Clean only removes these
const SeedEmailDomain = "example.com"

// DefaultPassword is the password of every seeded account
const DefaultPassword = "password123"

var discussionTopics = []struct {
	title   string
	passage string
}{
	{"태초의 창조를 묵상하며", "창세기 1:1"},
	{"아브라함의 믿음", "창세기 22:1-14"},
	{"광야에서 만나는 하나님", "출애굽기 16:4"},
	{"여호와는 나의 목자시니", "시편 23:1"},
	{"지혜의 근본", "잠언 1:7"},
	{"산상수훈의 팔복", "마태복음 5:3-12"},
	{"탕자의 비유", "누가복음 15:11-32"},
	{"사랑은 오래 참고", "고린도전서 13:4"},
	{"오늘 읽은 말씀 나눔", ""},
	{"기도 제목을 나눠요", ""},
}

var commentLines = []string{
	"아멘! 오늘 말씀이 큰 위로가 되었습니다.",
	"좋은 나눔 감사합니다.",
	"저도 같은 구절에서 은혜를 받았어요.",
	"함께 기도하겠습니다.",
	"이 부분은 어떻게 이해하면 좋을까요?",
	"원어로 보니 의미가 더 깊네요.",
}

// Seeder handles database seeding operations
type Seeder struct {
	db   *gorm.DB
	rng  *rand.Rand
	now  func() time.Time
	hash string
}

// NewSeeder creates a new seeder instance
func NewSeeder(db *gorm.DB) *Seeder {
	seed := time.Now().UnixNano()
	_ = gofakeit.Seed(seed)
	return &Seeder{db: db, rng: rand.New(rand.NewSource(seed)), now: time.Now}
}

// SeedDev creates a realistic data set: many readers with months of
// history and an active community
func (s *Seeder) SeedDev() error {
	logger.Log.Info("Creating users...")
	users, err := s.seedUsers(50)
	if err != nil {
		return fmt.Errorf("failed to seed users: %w", err)
	}

	logger.Log.Info("Creating reading history...")
	if err := s.seedProgress(users, 90); err != nil {
		return fmt.Errorf("failed to seed progress: %w", err)
	}

	logger.Log.Info("Creating discussions...")
	discussions, err := s.seedDiscussions(users, 40)
	if err != nil {
		return fmt.Errorf("failed to seed discussions: %w", err)
	}

	logger.Log.Info("Creating comments and reactions...")
	if err := s.seedComments(users, discussions, 150); err != nil {
		return fmt.Errorf("failed to seed comments: %w", err)
	}
	return s.seedReactions(users, discussions, 300)
}

// SeedTest creates the fixed accounts end-to-end tests log in with
func (s *Seeder) SeedTest() error {
	accounts := []struct {
		username    string
		displayName string
	}{
		{"alice", "Alice Kim"},
		{"bob", "Bob Lee"},
		{"charlie", "Charlie Park"},
		{"diana", "Diana Choi"},
		{"eve", "Eve Jung"},
	}

	var users []models.User
	for _, acct := range accounts {
		user, err := s.ensureUser(acct.username, acct.username+"@"+SeedEmailDomain, acct.displayName, "")
		if err != nil {
			return err
		}
		users = append(users, *user)
	}

	if err := s.seedProgress(users, 7); err != nil {
		return fmt.Errorf("failed to seed progress: %w", err)
	}
	discussions, err := s.seedDiscussions(users, 5)
	if err != nil {
		return fmt.Errorf("failed to seed discussions: %w", err)
	}
	return s.seedComments(users, discussions, 10)
}

// Clean removes everything owned by seeded accounts
func (s *Seeder) Clean() error {
	seedUsers := s.db.Model(&models.User{}).Select("id").Where("email LIKE ?", "%@"+SeedEmailDomain)
	seedDiscussions := s.db.Unscoped().Model(&models.Discussion{}).Select("id").Where("user_id IN (?)", seedUsers)

	return s.db.Transaction(func(tx *gorm.DB) error {
		steps := []struct {
			name  string
			model interface{}
			where string
			arg   interface{}
		}{
			{"comment_likes", &models.CommentLike{}, "user_id IN (?)", seedUsers},
			{"discussion_likes", &models.DiscussionLike{}, "user_id IN (?) OR discussion_id IN (?)", nil},
			{"bookmarks", &models.Bookmark{}, "user_id IN (?)", seedUsers},
			{"comments", &models.Comment{}, "user_id IN (?) OR discussion_id IN (?)", nil},
			{"discussions", &models.Discussion{}, "user_id IN (?)", seedUsers},
			{"reading_progress", &models.ReadingProgress{}, "user_id IN (?)", seedUsers},
			{"notifications", &models.Notification{}, "user_id IN (?)", seedUsers},
			{"user_settings", &models.UserSettings{}, "user_id IN (?)", seedUsers},
			{"users", &models.User{}, "email LIKE ?", "%@" + SeedEmailDomain},
		}
		for _, step := range steps {
			q := tx.Unscoped()
			if step.arg == nil {
				q = q.Where(step.where, seedUsers, seedDiscussions)
			} else {
				q = q.Where(step.where, step.arg)
			}
			if err := q.Delete(step.model).Error; err != nil {
				return fmt.Errorf("failed to clean %s: %w", step.name, err)
			}
		}
		return nil
	})
}

func (s *Seeder) passwordHash() (string, error) {
	if s.hash == "" {
		h, err := bcrypt.GenerateFromPassword([]byte(DefaultPassword), bcrypt.DefaultCost)
		if err != nil {
			return "", fmt.Errorf("failed to hash password: %w", err)
		}
		s.hash = string(h)
	}
	return s.hash, nil
}

func (s *Seeder) ensureUser(username, email, displayName, bio string) (*models.User, error) {
	var user models.User
	err := s.db.Where("username = ? OR email = ?", username, email).First(&user).Error
	if err == nil {
		return &user, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	hash, err := s.passwordHash()
	if err != nil {
		return nil, err
	}
	user = models.User{
		Email:        email,
		Username:     username,
		DisplayName:  displayName,
		Bio:          bio,
		PasswordHash: hash,
		AvatarURL:    fmt.Sprintf("https://api.dicebear.com/7.x/avataaars/png?seed=%s", username),
	}
	if err := s.db.Create(&user).Error; err != nil {
		return nil, fmt.Errorf("failed to create user %s: %w", username, err)
	}
	return &user, nil
}

// seedUsers creates count readers with varied reminder habits
func (s *Seeder) seedUsers(count int) ([]models.User, error) {
	reminderTimes := []string{"05:30", "06:00", "07:00", "08:30", "12:00", "21:00", "22:30"}

	users := make([]models.User, 0, count)
	for i := 0; i < count; i++ {
		username := fmt.Sprintf("%s%d", gofakeit.Username(), i)
		if len(username) > 30 {
			username = username[len(username)-30:]
		}
		user, err := s.ensureUser(username, username+"@"+SeedEmailDomain, gofakeit.Name(), gofakeit.Sentence(8))
		if err != nil {
			return nil, err
		}

		settings := models.DefaultSettings(user.ID)
		settings.ReminderTime = reminderTimes[s.rng.Intn(len(reminderTimes))]
		settings.EmailEnabled = s.rng.Float32() < 0.5
		if err := s.db.Where("user_id = ?", user.ID).FirstOrCreate(&settings).Error; err != nil {
			return nil, fmt.Errorf("failed to create settings: %w", err)
		}
		users = append(users, *user)
	}

	logger.Log.Info("Created seed users", zap.Int("count", len(users)))
	return users, nil
}

// seedProgress gives each user a history over the last days: a habit
// strength decides how often they read and how many of the four readings
func (s *Seeder) seedProgress(users []models.User, days int) error {
	today := s.now().UTC()
	var rows []models.ReadingProgress

	for _, u := range users {
		habit := 0.3 + s.rng.Float64()*0.7
		for d := 0; d < days; d++ {
			if s.rng.Float64() > habit {
				continue
			}
			date := today.AddDate(0, 0, -d)
			planDate := bible.FormatDate(date)
			readings, err := bible.ReadingsForDay(bible.DayForDate(date))
			if err != nil {
				return err
			}
			n := 1 + s.rng.Intn(len(readings))
			for _, r := range readings[:n] {
				at := time.Date(date.Year(), date.Month(), date.Day(), 5+s.rng.Intn(17), s.rng.Intn(60), 0, 0, time.UTC)
				rows = append(rows, models.ReadingProgress{
					UserID:      u.ID,
					PlanDate:    planDate,
					ReadingID:   r.ID,
					Book:        r.Book,
					Chapter:     r.Chapter,
					IsCompleted: true,
					CompletedAt: &at,
				})
			}
		}
	}

	if len(rows) == 0 {
		return nil
	}
	return s.db.Clauses(clause.OnConflict{DoNothing: true}).CreateInBatches(rows, 500).Error
}

// seedDiscussions spreads count discussions over the active categories
func (s *Seeder) seedDiscussions(users []models.User, count int) ([]models.Discussion, error) {
	var categories []models.Category
	if err := s.db.Where("is_active = ?", true).Find(&categories).Error; err != nil {
		return nil, err
	}

	discussions := make([]models.Discussion, 0, count)
	for i := 0; i < count; i++ {
		topic := discussionTopics[i%len(discussionTopics)]
		d := models.Discussion{
			UserID:           users[s.rng.Intn(len(users))].ID,
			Title:            topic.title,
			Content:          gofakeit.Paragraph(2, 3, 12, " "),
			PassageReference: topic.passage,
			IsPinned:         i == 0,
		}
		if len(categories) > 0 {
			d.CategoryID = &categories[s.rng.Intn(len(categories))].ID
		}
		if err := s.db.Create(&d).Error; err != nil {
			return nil, fmt.Errorf("failed to create discussion: %w", err)
		}
		discussions = append(discussions, d)
	}
	return discussions, nil
}

// seedComments adds comments, a third of them replies, and keeps
// comment_count in step
func (s *Seeder) seedComments(users []models.User, discussions []models.Discussion, count int) error {
	if len(discussions) == 0 {
		return nil
	}
	byDiscussion := map[string][]string{}

	for i := 0; i < count; i++ {
		d := discussions[s.rng.Intn(len(discussions))]
		c := models.Comment{
			DiscussionID: d.ID,
			UserID:       users[s.rng.Intn(len(users))].ID,
			Content:      commentLines[s.rng.Intn(len(commentLines))],
		}
		if roots := byDiscussion[d.ID]; len(roots) > 0 && s.rng.Intn(3) == 0 {
			parent := roots[s.rng.Intn(len(roots))]
			c.ParentID = &parent
		}
		if err := s.db.Create(&c).Error; err != nil {
			return fmt.Errorf("failed to create comment: %w", err)
		}
		if c.ParentID == nil {
			byDiscussion[d.ID] = append(byDiscussion[d.ID], c.ID)
		}
		if err := s.db.Model(&models.Discussion{}).Where("id = ?", d.ID).
			UpdateColumn("comment_count", gorm.Expr("comment_count + 1")).Error; err != nil {
			return err
		}
	}
	return nil
}

// seedReactions likes and bookmarks random discussions; duplicates are skipped
func (s *Seeder) seedReactions(users []models.User, discussions []models.Discussion, count int) error {
	if len(discussions) == 0 {
		return nil
	}
	seen := map[string]bool{}
	for i := 0; i < count; i++ {
		u := users[s.rng.Intn(len(users))]
		d := discussions[s.rng.Intn(len(discussions))]
		key := u.ID + d.ID
		if seen[key] {
			continue
		}
		seen[key] = true

		if err := s.db.Create(&models.DiscussionLike{UserID: u.ID, DiscussionID: d.ID}).Error; err != nil {
			return fmt.Errorf("failed to create like: %w", err)
		}
		if err := s.db.Model(&models.Discussion{}).Where("id = ?", d.ID).
			UpdateColumn("like_count", gorm.Expr("like_count + 1")).Error; err != nil {
			return err
		}
		if s.rng.Intn(4) == 0 {
			if err := s.db.Create(&models.Bookmark{UserID: u.ID, DiscussionID: d.ID}).Error; err != nil {
				return fmt.Errorf("failed to create bookmark: %w", err)
			}
		}
	}
	return nil
}
