package seed

import (
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/devlog-app/backend/internal/logger"
	"github.com/devlog-app/backend/internal/models"
	"github.com/devlog-app/backend/internal/trending"
	"github.com/devlog-app/backend/internal/util"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// Seeder handles database seeding operations
type Seeder struct {
	db *gorm.DB
}

// NewSeeder creates a new seeder instance
func NewSeeder(db *gorm.DB) *Seeder {
	_ = gofakeit.Seed(time.Now().UnixNano())
	return &Seeder{db: db}
}

// SeedDev seeds the development database with realistic blog data
func (s *Seeder) SeedDev() error {
	log := func(msg string) {
		logger.Log.Info(msg)
	}

	log("Creating users...")
	users, err := s.seedUsers(50)
	if err != nil {
		return fmt.Errorf("failed to seed users: %w", err)
	}

	log("Creating categories...")
	categories, err := s.seedCategories()
	if err != nil {
		return fmt.Errorf("failed to seed categories: %w", err)
	}

	log("Creating posts...")
	posts, err := s.seedPosts(users, categories, 200)
	if err != nil {
		return fmt.Errorf("failed to seed posts: %w", err)
	}

	log("Creating comments...")
	if err := s.seedComments(users, posts, 600); err != nil {
		return fmt.Errorf("failed to seed comments: %w", err)
	}

	log("Creating likes...")
	if err := s.seedLikes(users, posts, 1000); err != nil {
		return fmt.Errorf("failed to seed likes: %w", err)
	}

	log("Creating follows...")
	if err := s.seedFollows(users, 300); err != nil {
		return fmt.Errorf("failed to seed follows: %w", err)
	}

	log("Creating bookmarks...")
	if err := s.seedBookmarks(users, posts, 200); err != nil {
		return fmt.Errorf("failed to seed bookmarks: %w", err)
	}

	log("Recomputing trending scores...")
	if err := s.recomputeTrending(posts); err != nil {
		return fmt.Errorf("failed to recompute trending: %w", err)
	}

	return nil
}

// SeedTest seeds the test database with a small fixed dataset
func (s *Seeder) SeedTest() error {
	testUserSpecs := []struct {
		username string
		email    string
		fullName string
		role     models.Role
	}{
		{"admin", "admin@example.com", "Ada Admin", models.RoleAdmin},
		{"mod", "mod@example.com", "Mo Moderator", models.RoleModerator},
		{"alice", "alice@example.com", "Alice Smith", models.RoleUser},
		{"bob", "bob@example.com", "Bob Johnson", models.RoleUser},
	}

	var users []models.User
	for _, spec := range testUserSpecs {
		var user models.User
		err := s.db.Where("username = ? OR email = ?", spec.username, spec.email).First(&user).Error
		if err == nil {
			users = append(users, user)
			continue
		}

		hashed, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.DefaultCost)
		if err != nil {
			return fmt.Errorf("failed to hash password: %w", err)
		}

		user = models.User{
			Username:     spec.username,
			Email:        spec.email,
			FullName:     spec.fullName,
			PasswordHash: string(hashed),
			Role:         spec.role,
			AvatarURL:    fmt.Sprintf("https://api.dicebear.com/7.x/avataaars/png?seed=%s", spec.username),
		}
		if err := s.db.Create(&user).Error; err != nil {
			return fmt.Errorf("failed to create test user %s: %w", spec.username, err)
		}
		users = append(users, user)
	}

	categories, err := s.seedCategories()
	if err != nil {
		return fmt.Errorf("failed to seed categories: %w", err)
	}

	posts, err := s.seedPosts(users, categories, 10)
	if err != nil {
		return fmt.Errorf("failed to seed posts: %w", err)
	}

	if err := s.seedComments(users, posts, 20); err != nil {
		return fmt.Errorf("failed to seed comments: %w", err)
	}

	return nil
}

// Clean removes all seed data (use with caution!)
func (s *Seeder) Clean() error {
	tables := []string{
		"moderation_events",
		"reports",
		"notifications",
		"search_queries",
		"auth_sessions",
		"bookmarks",
		"follows",
		"likes",
		"comments",
		"post_tags",
		"tags",
		"posts",
		"categories",
		"users",
	}
	for _, table := range tables {
		if err := s.db.Exec("DELETE FROM " + table).Error; err != nil {
			return fmt.Errorf("failed to clean %s: %w", table, err)
		}
	}
	return nil
}

func (s *Seeder) seedUsers(count int) ([]models.User, error) {
	var seedUserCount int64
	s.db.Model(&models.User{}).Where("email LIKE '%@example.com'").Count(&seedUserCount)
	if seedUserCount >= int64(count) {
		var users []models.User
		if err := s.db.Find(&users).Error; err != nil {
			return nil, err
		}
		logger.Log.Info("Found existing users, skipping creation",
			zap.Int("total_users", len(users)))
		return users, nil
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	users := []models.User{
		{
			Username:     "admin",
			Email:        "admin@example.com",
			FullName:     "Site Admin",
			PasswordHash: string(hashed),
			Role:         models.RoleAdmin,
			IsVerified:   true,
		},
		{
			Username:     "moderator",
			Email:        "moderator@example.com",
			FullName:     "Site Moderator",
			PasswordHash: string(hashed),
			Role:         models.RoleModerator,
			IsVerified:   true,
		},
	}
	for i := range users {
		if err := s.db.Where("username = ?", users[i].Username).
			FirstOrCreate(&users[i]).Error; err != nil {
			return nil, err
		}
	}

	for i := 0; i < count; i++ {
		username := strings.ToLower(gofakeit.Username())
		email := gofakeit.Email()

		var existing models.User
		for {
			if err := s.db.Where("username = ? OR email = ?", username, email).
				First(&existing).Error; err == gorm.ErrRecordNotFound {
				break
			}
			username = strings.ToLower(gofakeit.Username())
			email = gofakeit.Email()
		}

		user := models.User{
			Username:     username,
			Email:        email,
			FullName:     gofakeit.Name(),
			Bio:          gofakeit.HipsterSentence(),
			Location:     fmt.Sprintf("%s, %s", gofakeit.City(), gofakeit.Country()),
			Website:      gofakeit.URL(),
			AvatarURL:    fmt.Sprintf("https://api.dicebear.com/7.x/avataaars/png?seed=%s", username),
			PasswordHash: string(hashed),
			Role:         models.RoleUser,
			IsVerified:   rand.Intn(4) == 0,
		}
		if err := s.db.Create(&user).Error; err != nil {
			return nil, fmt.Errorf("failed to create user %s: %w", username, err)
		}
		users = append(users, user)
	}

	return users, nil
}

func (s *Seeder) seedCategories() ([]models.Category, error) {
	names := []string{
		"Programming", "DevOps", "Databases", "Web Development",
		"Machine Learning", "Career", "Open Source", "Tooling",
	}

	var categories []models.Category
	for _, name := range names {
		category := models.Category{
			Name:        name,
			Slug:        util.Slugify(name),
			Description: gofakeit.Sentence(8),
		}
		if err := s.db.Where("slug = ?", category.Slug).
			FirstOrCreate(&category).Error; err != nil {
			return nil, err
		}
		categories = append(categories, category)
	}
	return categories, nil
}

var tagPool = []string{
	"golang", "postgres", "redis", "docker", "kubernetes", "testing",
	"performance", "security", "api-design", "observability", "ci-cd",
	"microservices", "websockets", "grpc", "caching", "sre",
}

func (s *Seeder) seedPosts(users []models.User, categories []models.Category, count int) ([]models.Post, error) {
	statuses := []models.PostStatus{
		models.PostStatusPublished, models.PostStatusPublished,
		models.PostStatusPublished, models.PostStatusPublished,
		models.PostStatusPending, models.PostStatusDraft,
	}

	var posts []models.Post
	for i := 0; i < count; i++ {
		author := users[rand.Intn(len(users))]
		title := strings.TrimSuffix(gofakeit.HipsterSentence(), ".")
		content := strings.Join([]string{
			gofakeit.HipsterParagraph(),
			gofakeit.HipsterParagraph(),
		}, "\n\n")
		status := statuses[rand.Intn(len(statuses))]

		post := models.Post{
			AuthorID: author.ID,
			Title:    title,
			Slug:     fmt.Sprintf("%s-%d", util.Slugify(title), i+1),
			Content:  content,
			Excerpt:  util.MakeExcerpt(content, 200),
			Status:   status,
		}
		if rand.Intn(3) != 0 {
			post.CategoryID = &categories[rand.Intn(len(categories))].ID
		}
		if status == models.PostStatusPublished {
			publishedAt := time.Now().UTC().Add(-time.Duration(rand.Intn(30*24)) * time.Hour)
			post.PublishedAt = &publishedAt
			post.ViewCount = rand.Intn(5000)
			post.ShareCount = rand.Intn(50)
		}

		if err := s.db.Create(&post).Error; err != nil {
			return nil, fmt.Errorf("failed to create post: %w", err)
		}

		if err := s.attachRandomTags(&post); err != nil {
			return nil, err
		}

		if err := s.db.Model(&models.User{}).Where("id = ?", author.ID).
			UpdateColumn("post_count", gorm.Expr("post_count + 1")).Error; err != nil {
			return nil, err
		}

		posts = append(posts, post)
	}

	return posts, nil
}

func (s *Seeder) attachRandomTags(post *models.Post) error {
	tagCount := rand.Intn(4) // 0-3 tags
	seen := make(map[string]bool)
	for len(seen) < tagCount {
		name := tagPool[rand.Intn(len(tagPool))]
		if seen[name] {
			continue
		}
		seen[name] = true

		var tag models.Tag
		if err := s.db.Where("name = ?", name).
			FirstOrCreate(&tag, models.Tag{Name: name}).Error; err != nil {
			return err
		}
		if err := s.db.Model(post).Association("Tags").Append(&tag); err != nil {
			return err
		}
		if err := s.db.Model(&models.Tag{}).Where("id = ?", tag.ID).
			UpdateColumn("post_count", gorm.Expr("post_count + 1")).Error; err != nil {
			return err
		}
	}
	return nil
}

func (s *Seeder) seedComments(users []models.User, posts []models.Post, count int) error {
	published := publishedOnly(posts)
	if len(published) == 0 {
		return nil
	}

	var created []models.Comment
	for i := 0; i < count; i++ {
		post := published[rand.Intn(len(published))]
		author := users[rand.Intn(len(users))]

		comment := models.Comment{
			PostID:   post.ID,
			AuthorID: author.ID,
			Content:  gofakeit.HipsterSentence(),
		}
		// Roughly a quarter of comments are replies to an earlier one
		if len(created) > 0 && rand.Intn(4) == 0 {
			parent := created[rand.Intn(len(created))]
			if parent.ParentID == nil { // keep seeded threads shallow
				comment.PostID = parent.PostID
				comment.ParentID = &parent.ID
			}
		}

		if err := s.db.Create(&comment).Error; err != nil {
			return fmt.Errorf("failed to create comment: %w", err)
		}
		if err := s.db.Model(&models.Post{}).Where("id = ?", comment.PostID).
			UpdateColumn("comment_count", gorm.Expr("comment_count + 1")).Error; err != nil {
			return err
		}
		created = append(created, comment)
	}

	return nil
}

func (s *Seeder) seedLikes(users []models.User, posts []models.Post, count int) error {
	published := publishedOnly(posts)
	if len(published) == 0 {
		return nil
	}

	seen := make(map[string]bool)
	for i := 0; i < count; i++ {
		user := users[rand.Intn(len(users))]
		post := published[rand.Intn(len(published))]
		key := user.ID + ":" + post.ID
		if seen[key] {
			continue
		}
		seen[key] = true

		like := models.Like{UserID: user.ID, PostID: &post.ID}
		if err := s.db.Create(&like).Error; err != nil {
			return fmt.Errorf("failed to create like: %w", err)
		}
		if err := s.db.Model(&models.Post{}).Where("id = ?", post.ID).
			UpdateColumn("like_count", gorm.Expr("like_count + 1")).Error; err != nil {
			return err
		}
	}

	return nil
}

func (s *Seeder) seedFollows(users []models.User, count int) error {
	seen := make(map[string]bool)
	for i := 0; i < count; i++ {
		follower := users[rand.Intn(len(users))]
		following := users[rand.Intn(len(users))]
		if follower.ID == following.ID {
			continue
		}
		key := follower.ID + ":" + following.ID
		if seen[key] {
			continue
		}
		seen[key] = true

		follow := models.Follow{FollowerID: follower.ID, FollowingID: following.ID}
		if err := s.db.Create(&follow).Error; err != nil {
			return fmt.Errorf("failed to create follow: %w", err)
		}
		if err := s.db.Model(&models.User{}).Where("id = ?", following.ID).
			UpdateColumn("follower_count", gorm.Expr("follower_count + 1")).Error; err != nil {
			return err
		}
		if err := s.db.Model(&models.User{}).Where("id = ?", follower.ID).
			UpdateColumn("following_count", gorm.Expr("following_count + 1")).Error; err != nil {
			return err
		}
	}

	return nil
}

func (s *Seeder) seedBookmarks(users []models.User, posts []models.Post, count int) error {
	published := publishedOnly(posts)
	if len(published) == 0 {
		return nil
	}

	seen := make(map[string]bool)
	for i := 0; i < count; i++ {
		user := users[rand.Intn(len(users))]
		post := published[rand.Intn(len(published))]
		key := user.ID + ":" + post.ID
		if seen[key] {
			continue
		}
		seen[key] = true

		bookmark := models.Bookmark{UserID: user.ID, PostID: post.ID}
		if err := s.db.Create(&bookmark).Error; err != nil {
			return fmt.Errorf("failed to create bookmark: %w", err)
		}
	}

	return nil
}

// recomputeTrending refreshes trending scores from the final seeded
// counters, since the per-row increments above bypass the handlers
func (s *Seeder) recomputeTrending(posts []models.Post) error {
	now := time.Now().UTC()
	for _, post := range posts {
		if post.Status != models.PostStatusPublished {
			continue
		}
		var current models.Post
		if err := s.db.Where("id = ?", post.ID).First(&current).Error; err != nil {
			return err
		}
		createdAt := current.CreatedAt
		if current.PublishedAt != nil {
			createdAt = *current.PublishedAt
		}
		score := trending.Score(current.LikeCount, current.CommentCount, current.ViewCount, createdAt, now)
		if err := s.db.Model(&models.Post{}).Where("id = ?", current.ID).
			UpdateColumn("trending_score", score).Error; err != nil {
			return err
		}
	}
	return nil
}

func publishedOnly(posts []models.Post) []models.Post {
	var out []models.Post
	for _, p := range posts {
		if p.Status == models.PostStatusPublished {
			out = append(out, p)
		}
	}
	return out
}
