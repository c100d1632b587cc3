package ui

import (
	"fmt"
	"github.com/charmbracelet/lipgloss"
	"io"
)

var (
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#4ECB71")).Bold(true)
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF6B6B")).Bold(true)
	detailStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#888888"))
	routeStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#7D56F4"))
)

// Toast 在终端里输出提示消息
type Toast struct {
	w io.Writer
}

func NewToast(w io.Writer) *Toast {
	return &Toast{w: w}
}

func (t *Toast) Success(title, message string) {
	_, _ = fmt.Fprintf(t.w, "%s %s\n", successStyle.Render("✓ "+title), detailStyle.Render(message))
}

func (t *Toast) Error(title, message string) {
	_, _ = fmt.Fprintf(t.w, "%s %s\n", errorStyle.Render("✗ "+title), detailStyle.Render(message))
}

// Router 记录当前所在的页面
type Router struct {
	w       io.Writer
	current string
}

func NewRouter(w io.Writer) *Router {
	return &Router{w: w}
}

func (r *Router) Navigate(route string) {
	if r.current == route {
		return
	}
	r.current = route
	_, _ = fmt.Fprintln(r.w, routeStyle.Render("→ "+route))
}

func (r *Router) Current() string {
	return r.current
}
