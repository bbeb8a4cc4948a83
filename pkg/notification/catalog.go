package notification

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// ErrInvalidCatalog is returned when a catalog file cannot be parsed.
var ErrInvalidCatalog = errors.New("invalid notification catalog")

// catalogFile mirrors the on-disk YAML catalog format. Enum fields stay
// strings here and are validated during conversion so a typo in the file
// fails at load time, not at notify time.
type catalogFile struct {
	Types []catalogEntry `yaml:"types"`
}

type catalogEntry struct {
	ID               string   `yaml:"id"`
	Category         string   `yaml:"category"`
	Priority         string   `yaml:"priority"`
	Title            string   `yaml:"title"`
	Body             string   `yaml:"body"`
	Channels         []string `yaml:"channels"`
	ExpireAfterHours int      `yaml:"expire_after_hours"`
}

// LoadCatalog parses a YAML notification type catalog from r.
// The returned types are validated the same way NewRegistry validates
// programmatically constructed catalogs.
func LoadCatalog(r io.Reader) ([]Type, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}

	var file catalogFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, errors.Join(ErrInvalidCatalog, err)
	}

	types := make([]Type, 0, len(file.Types))
	for _, e := range file.Types {
		t, err := e.toType()
		if err != nil {
			return nil, err
		}
		types = append(types, t)
	}
	return types, nil
}

// LoadCatalogFile reads and parses a YAML catalog from the given path.
func LoadCatalogFile(path string) ([]Type, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open catalog file: %w", err)
	}
	defer f.Close()
	return LoadCatalog(f)
}

func (e catalogEntry) toType() (Type, error) {
	category, err := ParseCategory(e.Category)
	if err != nil {
		return Type{}, fmt.Errorf("%w: type %q: category %q", ErrInvalidCatalog, e.ID, e.Category)
	}
	priority, err := ParsePriority(e.Priority)
	if err != nil {
		return Type{}, fmt.Errorf("%w: type %q: priority %q", ErrInvalidCatalog, e.ID, e.Priority)
	}
	channels := make([]Channel, 0, len(e.Channels))
	for _, raw := range e.Channels {
		ch, err := ParseChannel(raw)
		if err != nil {
			return Type{}, fmt.Errorf("%w: type %q: channel %q", ErrInvalidCatalog, e.ID, raw)
		}
		channels = append(channels, ch)
	}
	return Type{
		ID:              e.ID,
		Category:        category,
		Priority:        priority,
		TitleTemplate:   e.Title,
		BodyTemplate:    e.Body,
		DefaultChannels: channels,
		ExpireAfter:     time.Duration(e.ExpireAfterHours) * time.Hour,
	}, nil
}

// DefaultCatalog returns the built-in notification type catalog covering the
// marketplace event set. Applications can extend or replace it with a YAML
// catalog via LoadCatalog.
func DefaultCatalog() []Type {
	return []Type{
		{
			ID:              "MESSAGE_NEW",
			Category:        CategoryMessage,
			Priority:        PriorityHigh,
			TitleTemplate:   "Yeni Mesaj",
			BodyTemplate:    "{{senderName}}: {{messagePreview}}",
			DefaultChannels: []Channel{ChannelPush, ChannelInApp},
			ExpireAfter:     24 * time.Hour,
		},
		{
			ID:              "BOOKING_CONFIRMED",
			Category:        CategoryBooking,
			Priority:        PriorityHigh,
			TitleTemplate:   "Rezervasyon Onaylandı",
			BodyTemplate:    "{{providerName}} ile {{bookingDate}} tarihli rezervasyonunuz onaylandı.",
			DefaultChannels: []Channel{ChannelPush, ChannelEmail, ChannelInApp},
		},
		{
			ID:              "BOOKING_CANCELLED",
			Category:        CategoryBooking,
			Priority:        PriorityHigh,
			TitleTemplate:   "Rezervasyon İptal Edildi",
			BodyTemplate:    "{{bookingDate}} tarihli rezervasyonunuz iptal edildi.",
			DefaultChannels: []Channel{ChannelPush, ChannelEmail, ChannelInApp},
		},
		{
			ID:              "BOOKING_REMINDER",
			Category:        CategoryBooking,
			Priority:        PriorityNormal,
			TitleTemplate:   "Rezervasyon Hatırlatması",
			BodyTemplate:    "{{providerName}} ile rezervasyonunuz {{hoursLeft}} saat sonra başlıyor.",
			DefaultChannels: []Channel{ChannelPush, ChannelInApp},
			ExpireAfter:     12 * time.Hour,
		},
		{
			ID:              "PAYMENT_RECEIVED",
			Category:        CategoryPayment,
			Priority:        PriorityNormal,
			TitleTemplate:   "Ödeme Alındı",
			BodyTemplate:    "{{amount}} tutarındaki ödemeniz alındı.",
			DefaultChannels: []Channel{ChannelEmail, ChannelInApp},
		},
		{
			ID:              "PAYMENT_FAILED",
			Category:        CategoryPayment,
			Priority:        PriorityUrgent,
			TitleTemplate:   "Ödeme Başarısız",
			BodyTemplate:    "{{amount}} tutarındaki ödemeniz gerçekleştirilemedi. Lütfen ödeme yönteminizi kontrol edin.",
			DefaultChannels: []Channel{ChannelPush, ChannelEmail, ChannelSMS, ChannelInApp},
		},
		{
			ID:              "REVIEW_RECEIVED",
			Category:        CategoryReview,
			Priority:        PriorityNormal,
			TitleTemplate:   "Yeni Değerlendirme",
			BodyTemplate:    "{{reviewerName}} size {{rating}} yıldız verdi.",
			DefaultChannels: []Channel{ChannelPush, ChannelInApp},
		},
		{
			ID:              "SECURITY_ALERT",
			Category:        CategorySecurity,
			Priority:        PriorityUrgent,
			TitleTemplate:   "Güvenlik Uyarısı",
			BodyTemplate:    "Hesabınızda yeni bir cihazdan oturum açıldı: {{deviceInfo}}",
			DefaultChannels: []Channel{ChannelPush, ChannelEmail, ChannelSMS, ChannelInApp},
		},
		{
			ID:              "PROFILE_APPROVED",
			Category:        CategoryProfile,
			Priority:        PriorityNormal,
			TitleTemplate:   "Profiliniz Onaylandı",
			BodyTemplate:    "Profiliniz yayına alındı ve artık aramalarda görünüyor.",
			DefaultChannels: []Channel{ChannelEmail, ChannelInApp},
		},
		{
			ID:              "PROMO_CAMPAIGN",
			Category:        CategoryPromotion,
			Priority:        PriorityLow,
			TitleTemplate:   "{{campaignTitle}}",
			BodyTemplate:    "{{campaignBody}}",
			DefaultChannels: []Channel{ChannelPush, ChannelInApp},
			ExpireAfter:     72 * time.Hour,
		},
		{
			ID:              "SYSTEM_ANNOUNCEMENT",
			Category:        CategorySystem,
			Priority:        PriorityNormal,
			TitleTemplate:   "Duyuru",
			BodyTemplate:    "{{announcement}}",
			DefaultChannels: []Channel{ChannelInApp},
		},
	}
}
