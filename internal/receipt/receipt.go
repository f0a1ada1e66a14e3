// Package receipt формирует квитанции по заказам: HTML по шаблону и PDF через headless Chrome.
package receipt

import (
	"bytes"
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"io"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"

	"github.com/mmeshcher/storefront-admin/internal/model"
)

//go:embed templates/receipt.html
var templatesFS embed.FS

var receiptTemplate = template.Must(template.New("receipt.html").Funcs(template.FuncMap{
	"money": func(v float64) string { return fmt.Sprintf("₹%.2f", v) },
	"lineTotal": func(it model.LineItem) float64 {
		return float64(it.Quantity) * it.UnitPrice
	},
}).ParseFS(templatesFS, "templates/receipt.html"))

// ErrDisabled возвращается, если путь к браузеру не настроен.
var ErrDisabled = errors.New("receipt renderer disabled")

// Data содержит данные для шаблона квитанции.
type Data struct {
	Order    model.Order
	Customer string
	Email    string
	IssuedAt time.Time
	ShopName string
	Total    float64
}

// NewData собирает данные квитанции по заказу.
func NewData(o model.Order, customerName string, issuedAt time.Time) Data {
	var sum float64
	for _, it := range o.Items {
		sum += float64(it.Quantity) * it.UnitPrice
	}
	if o.TotalPrice != nil {
		sum = *o.TotalPrice
	}

	return Data{
		Order:    o,
		Customer: customerName,
		Email:    o.ContactEmail,
		IssuedAt: issuedAt,
		ShopName: "Storefront",
		Total:    sum,
	}
}

// RenderHTML выполняет шаблон квитанции.
func RenderHTML(w io.Writer, d Data) error {
	if err := receiptTemplate.Execute(w, d); err != nil {
		return fmt.Errorf("execute receipt template: %w", err)
	}
	return nil
}

// Renderer печатает HTML-квитанции в PDF. Браузер запускается лениво
// при первом запросе и переиспользуется до вызова Close.
type Renderer struct {
	bin string

	mu      sync.Mutex
	browser *rod.Browser
	launch  *launcher.Launcher
}

// NewRenderer создаёт рендерер с указанным бинарником Chrome. Пустой путь отключает PDF.
func NewRenderer(bin string) *Renderer {
	return &Renderer{bin: bin}
}

// Enabled сообщает, настроена ли печать в PDF.
func (r *Renderer) Enabled() bool {
	return r != nil && r.bin != ""
}

func (r *Renderer) connect(ctx context.Context) (*rod.Browser, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.browser != nil {
		return r.browser, nil
	}

	l := launcher.New().Bin(r.bin).Headless(true).Leakless(false)
	u, err := l.Context(ctx).Launch()
	if err != nil {
		return nil, fmt.Errorf("launch browser: %w", err)
	}

	b := rod.New().ControlURL(u)
	if err := b.Connect(); err != nil {
		l.Kill()
		return nil, fmt.Errorf("connect browser: %w", err)
	}

	r.browser = b
	r.launch = l
	return b, nil
}

// PDF печатает квитанцию заказа в PDF.
func (r *Renderer) PDF(ctx context.Context, d Data) ([]byte, error) {
	if !r.Enabled() {
		return nil, ErrDisabled
	}

	var html bytes.Buffer
	if err := RenderHTML(&html, d); err != nil {
		return nil, err
	}

	browser, err := r.connect(ctx)
	if err != nil {
		return nil, err
	}

	page, err := browser.Context(ctx).Page(proto.TargetCreateTarget{URL: "about:blank"})
	if err != nil {
		return nil, fmt.Errorf("open page: %w", err)
	}
	defer page.Close()

	if err := page.SetDocumentContent(html.String()); err != nil {
		return nil, fmt.Errorf("set content: %w", err)
	}

	stream, err := page.PDF(&proto.PagePrintToPDF{PrintBackground: true})
	if err != nil {
		return nil, fmt.Errorf("print pdf: %w", err)
	}

	data, err := io.ReadAll(stream)
	if err != nil {
		return nil, fmt.Errorf("read pdf: %w", err)
	}
	return data, nil
}

// Close останавливает браузер, если он был запущен.
func (r *Renderer) Close() error {
	if r == nil {
		return nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.browser == nil {
		return nil
	}

	err := r.browser.Close()
	r.launch.Kill()
	r.browser = nil
	r.launch = nil
	return err
}
