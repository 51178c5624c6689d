package profile

import (
	"context"
	"errors"
	"testing"

	"github.com/Xushengqwer/go-common/commonerrors"
	"go.uber.org/zap"

	"github.com/Xushengqwer/kath_hub/constants"
	"github.com/Xushengqwer/kath_hub/models/entities"
	"github.com/Xushengqwer/kath_hub/repository/mysql"
	"github.com/Xushengqwer/kath_hub/service/profilesync"
)

type fakeProfileRepo struct {
	rows     map[string]*entities.UserProfile
	merges   int
	replaces int
	getErr   error
}

func newFakeProfileRepo() *fakeProfileRepo {
	return &fakeProfileRepo{rows: make(map[string]*entities.UserProfile)}
}

func (r *fakeProfileRepo) GetProfileByUserID(ctx context.Context, userID string) (*entities.UserProfile, error) {
	if r.getErr != nil {
		return nil, r.getErr
	}
	row, ok := r.rows[userID]
	if !ok {
		return nil, commonerrors.ErrRepoNotFound
	}
	copied := *row
	return &copied, nil
}

func (r *fakeProfileRepo) MergeProfile(ctx context.Context, p *entities.UserProfile) error {
	r.merges++
	existing, ok := r.rows[p.UserID]
	if !ok {
		r.rows[p.UserID] = p
		return nil
	}
	if p.Name != nil {
		existing.Name = p.Name
	}
	if p.Bio != nil {
		existing.Bio = p.Bio
	}
	if p.Age != nil {
		existing.Age = p.Age
	}
	return nil
}

func (r *fakeProfileRepo) ReplaceProfile(ctx context.Context, p *entities.UserProfile) error {
	r.replaces++
	r.rows[p.UserID] = p
	return nil
}

func (r *fakeProfileRepo) CreateProfileIfAbsent(ctx context.Context, p *entities.UserProfile) error {
	if _, ok := r.rows[p.UserID]; ok {
		return mysql.ErrProfileExists
	}
	r.rows[p.UserID] = p
	return nil
}

func strp(s string) *string { return &s }

func TestStoreMapsRepositoryErrors(t *testing.T) {
	repo := newFakeProfileRepo()
	store := NewStore(repo)
	ctx := context.Background()

	if _, err := store.Get(ctx, "U1"); !errors.Is(err, profilesync.ErrNotFound) {
		t.Fatalf("Get missing: err = %v, want ErrNotFound", err)
	}
	if err := store.Create(ctx, "U1", profilesync.Document{Name: strp("Alice")}); err != nil {
		t.Fatalf("Create: %v", err)
	}
	err := store.Create(ctx, "U1", profilesync.Document{Name: strp("Mallory")})
	if !errors.Is(err, profilesync.ErrAlreadyExists) {
		t.Fatalf("second Create: err = %v, want ErrAlreadyExists", err)
	}
	doc, err := store.Get(ctx, "U1")
	if err != nil || *doc.Name != "Alice" {
		t.Fatalf("Get after create = %+v, %v", doc, err)
	}

	boom := errors.New("db down")
	repo.getErr = boom
	if _, err := store.Get(ctx, "U1"); !errors.Is(err, boom) {
		t.Errorf("Get err = %v, want %v", err, boom)
	}
}

func TestStoreSetChoosesMergeOrReplace(t *testing.T) {
	repo := newFakeProfileRepo()
	store := NewStore(repo)
	ctx := context.Background()

	if err := store.Set(ctx, "U1", profilesync.Document{Name: strp("A"), Bio: strp("hi")}, false); err != nil {
		t.Fatal(err)
	}
	if err := store.Set(ctx, "U1", profilesync.Document{Name: strp("B")}, true); err != nil {
		t.Fatal(err)
	}
	if repo.replaces != 1 || repo.merges != 1 {
		t.Fatalf("replaces=%d merges=%d", repo.replaces, repo.merges)
	}
	row := repo.rows["U1"]
	if *row.Name != "B" || *row.Bio != "hi" {
		t.Errorf("row = name %q bio %q", *row.Name, *row.Bio)
	}
}

func TestGetMyProfileFillsDefaults(t *testing.T) {
	repo := newFakeProfileRepo()
	svc := NewUserProfileService(repo, zap.NewNop())
	ident := profilesync.Identity{UserID: "U1", DisplayName: "Alice", Email: "alice@example.com"}
	ctx := context.Background()

	if _, err := svc.GetMyProfile(ctx, ident); !errors.Is(err, commonerrors.ErrRepoNotFound) {
		t.Fatalf("missing profile: err = %v", err)
	}

	age := 31
	repo.rows["U1"] = &entities.UserProfile{UserID: "U1", Age: &age, Occupation: strp("Pilot")}
	got, err := svc.GetMyProfile(ctx, ident)
	if err != nil {
		t.Fatalf("GetMyProfile: %v", err)
	}
	if got.Name != "Alice" || got.Email != "alice@example.com" || got.Bio != constants.DefaultBio {
		t.Errorf("defaults not applied: %+v", got)
	}
	if got.Age != 31 || got.Occupation != "Pilot" || got.Phone != "" {
		t.Errorf("stored fields = %+v", got)
	}

	repo.getErr = errors.New("db down")
	if _, err := svc.GetMyProfile(ctx, ident); !errors.Is(err, commonerrors.ErrSystemError) {
		t.Errorf("err = %v, want ErrSystemError", err)
	}
}

type fakeCOS struct {
	objects map[string][]byte
	putErr  error
	headErr error
}

func (c *fakeCOS) PutObject(ctx context.Context, key string, data []byte, contentType string) error {
	if c.putErr != nil {
		return c.putErr
	}
	c.objects[key] = data
	return nil
}

func (c *fakeCOS) ObjectURL(ctx context.Context, key string) (string, error) {
	if c.headErr != nil {
		return "", c.headErr
	}
	if _, ok := c.objects[key]; !ok {
		return "", errors.New("not found")
	}
	return "https://bucket.example/" + key, nil
}

func (c *fakeCOS) DeleteObject(ctx context.Context, key string) error {
	delete(c.objects, key)
	return nil
}

func TestAvatarStore(t *testing.T) {
	cos := &fakeCOS{objects: make(map[string][]byte)}
	avatars := NewAvatarStore(cos)
	ctx := context.Background()

	if _, err := avatars.DownloadURL(ctx, "profile_images/U1_1.jpg"); err == nil {
		t.Fatal("DownloadURL of missing object should fail")
	}
	if err := avatars.Upload(ctx, "profile_images/U1_1.jpg", []byte{1}, "image/jpeg"); err != nil {
		t.Fatalf("Upload: %v", err)
	}
	url, err := avatars.DownloadURL(ctx, "profile_images/U1_1.jpg")
	if err != nil || url != "https://bucket.example/profile_images/U1_1.jpg" {
		t.Fatalf("DownloadURL = %q, %v", url, err)
	}

	// 上传成功但地址不可用时，孤立对象被删除
	if err := avatars.Upload(ctx, "profile_images/U1_2.jpg", []byte{2}, "image/jpeg"); err != nil {
		t.Fatalf("Upload: %v", err)
	}
	cos.headErr = errors.New("503")
	if _, err := avatars.DownloadURL(ctx, "profile_images/U1_2.jpg"); err == nil {
		t.Fatal("DownloadURL should fail when HEAD fails")
	}
	if _, ok := cos.objects["profile_images/U1_2.jpg"]; ok {
		t.Error("orphaned object should be deleted")
	}
	cos.headErr = nil

	cos.putErr = errors.New("403")
	if err := avatars.Upload(ctx, "x", nil, "image/jpeg"); !errors.Is(err, ErrAvatarStorage) {
		t.Errorf("Upload err = %v", err)
	}
}
