package mysql

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/Xushengqwer/go-common/commonerrors"
	"github.com/google/uuid"
	gormmysql "gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/Xushengqwer/kath_hub/models/entities"
)

// 需要真实的 MySQL，未设置 KATH_HUB_TEST_MYSQL_DSN 时跳过。
func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := os.Getenv("KATH_HUB_TEST_MYSQL_DSN")
	if dsn == "" {
		t.Skip("KATH_HUB_TEST_MYSQL_DSN 未设置，跳过 MySQL 集成测试")
	}
	db, err := gorm.Open(gormmysql.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		t.Fatalf("连接 MySQL 失败: %v", err)
	}
	if err := db.AutoMigrate(&entities.UserProfile{}); err != nil {
		t.Fatalf("迁移失败: %v", err)
	}
	return db
}

func strPtr(s string) *string { return &s }

func TestProfileRepository_RoundTrip(t *testing.T) {
	db := openTestDB(t)
	repo := NewProfileRepository(db)
	ctx := context.Background()
	userID := uuid.New().String()
	t.Cleanup(func() { db.Where("user_id = ?", userID).Delete(&entities.UserProfile{}) })

	if _, err := repo.GetProfileByUserID(ctx, userID); !errors.Is(err, commonerrors.ErrRepoNotFound) {
		t.Fatalf("不存在的资料应返回 ErrRepoNotFound, got %v", err)
	}

	if err := repo.CreateProfileIfAbsent(ctx, &entities.UserProfile{UserID: userID, Name: strPtr("Alice"), Bio: strPtr("hi")}); err != nil {
		t.Fatalf("CreateProfileIfAbsent: %v", err)
	}
	err := repo.CreateProfileIfAbsent(ctx, &entities.UserProfile{UserID: userID, Name: strPtr("Mallory")})
	if !errors.Is(err, ErrProfileExists) {
		t.Fatalf("重复创建应返回 ErrProfileExists, got %v", err)
	}

	// 合并写只覆盖提供的列
	if err := repo.MergeProfile(ctx, &entities.UserProfile{UserID: userID, Location: strPtr("Paris")}); err != nil {
		t.Fatalf("MergeProfile: %v", err)
	}
	got, err := repo.GetProfileByUserID(ctx, userID)
	if err != nil {
		t.Fatalf("GetProfileByUserID: %v", err)
	}
	if got.Name == nil || *got.Name != "Alice" || got.Bio == nil || *got.Bio != "hi" {
		t.Fatalf("合并写不应改动其他列: %+v", got)
	}
	if got.Location == nil || *got.Location != "Paris" {
		t.Fatalf("Location 未写入: %+v", got)
	}

	// 覆盖写把未提供的列置空
	if err := repo.ReplaceProfile(ctx, &entities.UserProfile{UserID: userID, Name: strPtr("Bob")}); err != nil {
		t.Fatalf("ReplaceProfile: %v", err)
	}
	got, err = repo.GetProfileByUserID(ctx, userID)
	if err != nil {
		t.Fatalf("GetProfileByUserID: %v", err)
	}
	if got.Name == nil || *got.Name != "Bob" {
		t.Fatalf("Name = %v, want Bob", got.Name)
	}
	if got.Bio != nil || got.Location != nil {
		t.Fatalf("覆盖写后 Bio/Location 应为空: %+v", got)
	}
}

func TestPresentColumns(t *testing.T) {
	age := 30
	cols := presentColumns(&entities.UserProfile{UserID: "U1", Name: strPtr("A"), Age: &age, Bio: strPtr("b")})
	want := []string{"name", "age", "bio"}
	if len(cols) != len(want) {
		t.Fatalf("presentColumns = %v, want %v", cols, want)
	}
	for i := range want {
		if cols[i] != want[i] {
			t.Fatalf("presentColumns = %v, want %v", cols, want)
		}
	}
	if cols := presentColumns(&entities.UserProfile{UserID: "U1"}); len(cols) != 0 {
		t.Fatalf("空实体不应有列: %v", cols)
	}
}
