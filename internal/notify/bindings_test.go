package notify

import (
	"context"
	"testing"

	"github.com/jmylchreest/pagewatch/internal/models"
	"github.com/jmylchreest/pagewatch/internal/repository"
)

type fakeSettingRepo struct {
	values map[string][]byte
}

func newFakeSettingRepo() *fakeSettingRepo {
	return &fakeSettingRepo{values: map[string][]byte{}}
}

func (f *fakeSettingRepo) Get(ctx context.Context, key string) (*models.SystemSetting, error) {
	v, ok := f.values[key]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &models.SystemSetting{Key: key, Value: v}, nil
}

func (f *fakeSettingRepo) Set(ctx context.Context, key string, value []byte) error {
	f.values[key] = value
	return nil
}

func TestSettingBindings_RoundTrip(t *testing.T) {
	repo := newFakeSettingRepo()
	b := NewSettingBindings(repo)

	if err := b.SetBindings(context.Background(), []NotifierBinding{
		{Kind: models.NotifierKindWebhook, Config: []byte(`{"url":"http://example.com"}`)},
	}); err != nil {
		t.Fatalf("SetBindings() error = %v", err)
	}

	got, err := b.ForProduct(context.Background(), "any-product")
	if err != nil {
		t.Fatalf("ForProduct() error = %v", err)
	}
	if len(got) != 1 || got[0].Kind != models.NotifierKindWebhook {
		t.Errorf("ForProduct() = %+v, want one webhook binding", got)
	}
}

func TestSettingBindings_NoneConfigured(t *testing.T) {
	b := NewSettingBindings(newFakeSettingRepo())

	got, err := b.ForProduct(context.Background(), "p1")
	if err != nil {
		t.Fatalf("ForProduct() error = %v", err)
	}
	if len(got) != 0 {
		t.Errorf("ForProduct() = %+v, want empty", got)
	}
}
