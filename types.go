package shire

import (
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"

	"github.com/eringen/shire/markdown"
)

// BlogPost is the core content type stored by the Store and rendered by views.
// Slug is always derived from Title.
type BlogPost struct {
	ID            string    `json:"id"`
	Title         string    `json:"title"`
	Slug          string    `json:"slug"`
	Excerpt       string    `json:"excerpt"`
	Content       string    `json:"content"`
	FeaturedImage string    `json:"featuredImage"`
	AuthorID      string    `json:"authorId"`
	Published     bool      `json:"published"`
	Tags          []string  `json:"tags"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// Link returns the public permalink path of the post.
func (p BlogPost) Link() string {
	return "/blog/" + p.Slug + "/"
}

// Summary returns the excerpt, or a plain-text digest of the content when
// the post has none.
func (p BlogPost) Summary() string {
	if s := strings.TrimSpace(p.Excerpt); s != "" {
		return s
	}
	return markdown.Summarize(p.Content, 200)
}

// ReadingTime is the estimated reading time of the content in minutes.
func (p BlogPost) ReadingTime() int {
	return markdown.ReadingTime(p.Content)
}

// NewPost is the input to Store.CreatePost.
type NewPost struct {
	Title         string   `json:"title"`
	Excerpt       string   `json:"excerpt"`
	Content       string   `json:"content"`
	FeaturedImage string   `json:"featuredImage"`
	AuthorID      string   `json:"authorId"`
	Published     bool     `json:"published"`
	Tags          []string `json:"tags"`
}

func (p NewPost) Validate() error {
	return validationError(validation.ValidateStruct(&p,
		validation.Field(&p.Title, notBlank, validation.RuneLength(0, 200)),
		validation.Field(&p.Content, notBlank),
		validation.Field(&p.AuthorID, notBlank),
		validation.Field(&p.Excerpt, validation.RuneLength(0, 1000)),
		validation.Field(&p.FeaturedImage, imageRef),
		validation.Field(&p.Tags, validation.Each(validation.RuneLength(1, 40))),
	))
}

// PostPatch is a partial update. Nil fields are left untouched.
type PostPatch struct {
	Title         *string   `json:"title,omitempty"`
	Excerpt       *string   `json:"excerpt,omitempty"`
	Content       *string   `json:"content,omitempty"`
	FeaturedImage *string   `json:"featuredImage,omitempty"`
	Published     *bool     `json:"published,omitempty"`
	Tags          *[]string `json:"tags,omitempty"`
}

func (p PostPatch) Validate() error {
	return validationError(validation.ValidateStruct(&p,
		validation.Field(&p.Title, notBlank, validation.RuneLength(0, 200)),
		validation.Field(&p.Content, notBlank),
		validation.Field(&p.Excerpt, validation.RuneLength(0, 1000)),
		validation.Field(&p.FeaturedImage, imageRef),
		validation.Field(&p.Tags, validation.By(func(value any) error {
			tags, _ := value.(*[]string)
			if tags == nil {
				return nil
			}
			return validation.Validate(*tags, validation.Each(validation.RuneLength(1, 40)))
		})),
	))
}

// apply merges the set fields of p into post.
func (p PostPatch) apply(post *BlogPost) {
	if p.Title != nil {
		post.Title = strings.TrimSpace(*p.Title)
	}
	if p.Excerpt != nil {
		post.Excerpt = strings.TrimSpace(*p.Excerpt)
	}
	if p.Content != nil {
		post.Content = *p.Content
	}
	if p.FeaturedImage != nil {
		post.FeaturedImage = strings.TrimSpace(*p.FeaturedImage)
	}
	if p.Published != nil {
		post.Published = *p.Published
	}
	if p.Tags != nil {
		post.Tags = NormalizeTags(*p.Tags)
	}
}

// Subject is the fixed set of topics a visitor can pick on the contact form.
type Subject string

const (
	SubjectStory         Subject = "story"
	SubjectQuestion      Subject = "question"
	SubjectCollaboration Subject = "collaboration"
	SubjectFeedback      Subject = "feedback"
	SubjectOther         Subject = "other"
)

var subjectLabels = map[Subject]string{
	SubjectStory:         "Share a Story",
	SubjectQuestion:      "Ask a Question",
	SubjectCollaboration: "Collaboration Inquiry",
	SubjectFeedback:      "Website Feedback",
	SubjectOther:         "Other",
}

// Subjects lists the contact subjects in form order.
func Subjects() []Subject {
	return []Subject{SubjectStory, SubjectQuestion, SubjectCollaboration, SubjectFeedback, SubjectOther}
}

// Label is the human readable name of s.
func (s Subject) Label() string {
	if l, ok := subjectLabels[s]; ok {
		return l
	}
	return string(s)
}

// ContactMessage is a visitor submission. It is never mutated after creation.
type ContactMessage struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Subject   Subject   `json:"subject"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"createdAt"`
}

// NewContactMessage is the input to Store.CreateContactMessage.
type NewContactMessage struct {
	Name    string  `json:"name"`
	Email   string  `json:"email"`
	Subject Subject `json:"subject"`
	Message string  `json:"message"`
}

func (m NewContactMessage) Validate() error {
	return validationError(validation.ValidateStruct(&m,
		validation.Field(&m.Name, notBlank, validation.RuneLength(0, 100)),
		validation.Field(&m.Email, validation.Required, is.EmailFormat, validation.RuneLength(0, 254)),
		validation.Field(&m.Subject, validation.Required,
			validation.In(SubjectStory, SubjectQuestion, SubjectCollaboration, SubjectFeedback, SubjectOther)),
		validation.Field(&m.Message, notBlank, validation.RuneLength(0, 5000)),
	))
}

// User is an identity record synced from the identity provider.
type User struct {
	ID              string    `json:"id"`
	Email           string    `json:"email"`
	FirstName       string    `json:"firstName"`
	LastName        string    `json:"lastName"`
	ProfileImageURL string    `json:"profileImageUrl"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

// DisplayName prefers the full name, then the email, then the id.
func (u User) DisplayName() string {
	if name := strings.TrimSpace(u.FirstName + " " + u.LastName); name != "" {
		return name
	}
	if u.Email != "" {
		return u.Email
	}
	return u.ID
}

// Image is an uploaded image available as a featured image.
type Image struct {
	Filename     string
	OriginalName string
	Width        int
	Height       int
	Size         int
	UploadedAt   time.Time
}

// URL is the public path of the uploaded file.
func (i Image) URL() string {
	return "/public/" + uploadsSubdir + "/" + i.Filename
}

// PageMeta carries per-page OpenGraph and SEO metadata into the <head> template.
type PageMeta struct {
	Title       string
	Description string
	URL         string // canonical + og:url
	OGType      string // "website" or "article"
}
