package http

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/openshelf/openshelf/internal/auth"
	"github.com/openshelf/openshelf/internal/entities"
)

// WishesController serves the acquisition wishlist. Patrons submit
// wishes, librarians read the feed.
type WishesController struct {
	store    WishStore
	sessions *auth.SessionManager
}

func NewWishesController(store WishStore, sessions *auth.SessionManager) *WishesController {
	return &WishesController{store: store, sessions: sessions}
}

// WishesPage renders the wish form for patrons and the full feed for
// librarians.
// GET /wishes
func (wc *WishesController) WishesPage(c *gin.Context) {
	data := gin.H{"Title": "Wishes"}

	if auth.GetUserRole(c) == entities.UserRoleLibrarian {
		all, err := wc.store.ListAll()
		if err != nil {
			failInternal(c, err, "list wishes")
			return
		}
		data["Wishes"] = all
	}

	c.HTML(http.StatusOK, "wishes.html", templateData(c, wc.sessions, data))
}

// SubmitWish records a patron's acquisition request. Librarians manage
// the catalog directly and are bounced back to the feed.
// POST /wishes
func (wc *WishesController) SubmitWish(c *gin.Context) {
	if auth.GetUserRole(c) == entities.UserRoleLibrarian {
		flashAndRedirect(c, wc.sessions, "danger", "Librarians add books directly to the catalog", "/wishes")
		return
	}

	text := strings.TrimSpace(c.PostForm("wish_text"))
	if text == "" {
		flashAndRedirect(c, wc.sessions, "danger", "Tell us which book you are missing", "/wishes")
		return
	}

	if _, err := wc.store.Create(auth.GetUserID(c), text); err != nil {
		failInternal(c, err, "create wish")
		return
	}

	flashAndRedirect(c, wc.sessions, "success", "Thanks! Your wish was recorded", "/wishes")
}
