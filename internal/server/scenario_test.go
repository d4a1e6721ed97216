package server

import (
	"bufio"
	"context"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/zyenak/library-management/internal/domain/models"
	"github.com/zyenak/library-management/internal/repository"

	"github.com/go-resty/resty/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// The scenario tests run the full router against the in-memory store, so the
// borrow bookkeeping is real rather than mocked.

type client struct {
	t    *testing.T
	base string
}

func (c *client) register(username, password string, role models.Role) models.User {
	c.t.Helper()
	var user models.User
	resp, err := resty.New().R().
		SetBody(map[string]any{"username": username, "password": password, "role": role}).
		SetResult(&user).
		Post(c.base + "/api/users")
	require.NoError(c.t, err)
	require.Equal(c.t, http.StatusCreated, resp.StatusCode())
	return user
}

func (c *client) login(username, password string) models.LoginResponse {
	c.t.Helper()
	var out models.LoginResponse
	resp, err := resty.New().R().
		SetBody(map[string]string{"username": username, "password": password}).
		SetResult(&out).
		Post(c.base + "/api/login")
	require.NoError(c.t, err)
	require.Equal(c.t, http.StatusOK, resp.StatusCode())
	return out
}

func TestBorrowReturnRoundTrip(t *testing.T) {
	_, httpSrv := newTestServer(repository.NewInMem())
	defer httpSrv.Close()
	c := &client{t: t, base: httpSrv.URL}

	admin := c.login(c.register("admin", "secret", models.RoleAdmin).Username, "secret")
	userA := c.register("alice", "wonder", models.RoleMember)
	alice := c.login("alice", "wonder")

	resp, err := resty.New().R().SetHeader("Authorization", admin.Token).
		SetBody(`{"isbn":"111","name":"Dune","category":"sci-fi","price":9.99,"quantity":3}`).
		Post(httpSrv.URL + "/api/books")
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.StatusCode())

	// borrow: quantity 3 -> 2, profile lists the book
	var profile models.User
	resp, err = resty.New().R().SetHeader("Authorization", alice.Token).
		SetBody(map[string]string{"userId": userA.ID}).SetResult(&profile).
		Post(httpSrv.URL + "/api/books/111/borrow")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode())
	require.Len(t, profile.BorrowedBooks, 1)
	assert.Equal(t, "111", profile.BorrowedBooks[0].ISBN)

	var book models.Book
	resp, err = resty.New().R().SetResult(&book).Get(httpSrv.URL + "/api/books/111")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode())
	assert.Equal(t, 2, book.Quantity)

	// return: quantity back to 3, edge gone
	resp, err = resty.New().R().SetHeader("Authorization", alice.Token).
		SetBody(map[string]string{"userId": userA.ID}).SetResult(&profile).
		Post(httpSrv.URL + "/api/books/111/return")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode())
	assert.Empty(t, profile.BorrowedBooks)

	resp, err = resty.New().R().SetResult(&book).Get(httpSrv.URL + "/api/books/111")
	require.NoError(t, err)
	assert.Equal(t, 3, book.Quantity)
}

func TestDoubleBorrowRejected(t *testing.T) {
	_, httpSrv := newTestServer(repository.NewInMem())
	defer httpSrv.Close()
	c := &client{t: t, base: httpSrv.URL}

	admin := c.login(c.register("admin", "secret", models.RoleAdmin).Username, "secret")
	userA := c.register("alice", "wonder", models.RoleMember)
	alice := c.login("alice", "wonder")

	resp, err := resty.New().R().SetHeader("Authorization", admin.Token).
		SetBody(`{"isbn":"111","name":"Dune","category":"sci-fi","price":9.99,"quantity":1}`).
		Post(httpSrv.URL + "/api/books")
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.StatusCode())

	borrow := func() int {
		resp, err := resty.New().R().SetHeader("Authorization", alice.Token).
			SetBody(map[string]string{"userId": userA.ID}).
			Post(httpSrv.URL + "/api/books/111/borrow")
		require.NoError(t, err)
		return resp.StatusCode()
	}
	assert.Equal(t, http.StatusOK, borrow())
	// the second call must not drive the quantity to -1
	assert.Equal(t, http.StatusConflict, borrow())

	var book models.Book
	_, err = resty.New().R().SetResult(&book).Get(httpSrv.URL + "/api/books/111")
	require.NoError(t, err)
	assert.Equal(t, 0, book.Quantity)
}

func TestCreateGetDeleteBook(t *testing.T) {
	_, httpSrv := newTestServer(repository.NewInMem())
	defer httpSrv.Close()
	c := &client{t: t, base: httpSrv.URL}

	admin := c.login(c.register("admin", "secret", models.RoleAdmin).Username, "secret")

	created := models.Book{ISBN: "42", Name: "Hitchhiker", Category: "sci-fi", Price: 4.2, Quantity: 2}
	resp, err := resty.New().R().SetHeader("Authorization", admin.Token).
		SetBody(created).Post(httpSrv.URL + "/api/books")
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.StatusCode())

	var got models.Book
	resp, err = resty.New().R().SetResult(&got).Get(httpSrv.URL + "/api/books/42")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode())
	assert.Equal(t, created, got)

	resp, err = resty.New().R().SetHeader("Authorization", admin.Token).
		Delete(httpSrv.URL + "/api/books/42")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode())

	resp, err = resty.New().R().Get(httpSrv.URL + "/api/books/42")
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode())
}

func TestPartialUpdateBook(t *testing.T) {
	_, httpSrv := newTestServer(repository.NewInMem())
	defer httpSrv.Close()
	c := &client{t: t, base: httpSrv.URL}

	admin := c.login(c.register("admin", "secret", models.RoleAdmin).Username, "secret")

	resp, err := resty.New().R().SetHeader("Authorization", admin.Token).
		SetBody(`{"isbn":"111","name":"Dune","category":"sci-fi","price":9.99,"quantity":3}`).
		Post(httpSrv.URL + "/api/books")
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.StatusCode())

	var updated models.Book
	resp, err = resty.New().R().SetHeader("Authorization", admin.Token).
		SetBody(`{"price":12.5}`).SetResult(&updated).
		Patch(httpSrv.URL + "/api/books/111")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode())
	// only the provided field changes
	assert.Equal(t, 12.5, updated.Price)
	assert.Equal(t, "Dune", updated.Name)
	assert.Equal(t, "sci-fi", updated.Category)
	assert.Equal(t, 3, updated.Quantity)
}

func TestChangePassword(t *testing.T) {
	_, httpSrv := newTestServer(repository.NewInMem())
	defer httpSrv.Close()
	c := &client{t: t, base: httpSrv.URL}

	userA := c.register("alice", "wonder", models.RoleMember)
	alice := c.login("alice", "wonder")

	// wrong old password is rejected
	resp, err := resty.New().R().SetHeader("Authorization", alice.Token).
		SetBody(`{"oldPassword":"nope","newPassword":"land"}`).
		Post(httpSrv.URL + "/api/users/" + userA.ID + "/password")
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode())

	resp, err = resty.New().R().SetHeader("Authorization", alice.Token).
		SetBody(`{"oldPassword":"wonder","newPassword":"land"}`).
		Post(httpSrv.URL + "/api/users/" + userA.ID + "/password")
	require.NoError(t, err)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode())

	// old credentials no longer work, new ones do
	loginCode := func(password string) int {
		resp, err := resty.New().R().
			SetBody(map[string]string{"username": "alice", "password": password}).
			Post(httpSrv.URL + "/api/login")
		require.NoError(t, err)
		return resp.StatusCode()
	}
	assert.Equal(t, http.StatusUnauthorized, loginCode("wonder"))
	assert.Equal(t, http.StatusOK, loginCode("land"))
}

func TestGetUserIncludesBorrowedBooks(t *testing.T) {
	_, httpSrv := newTestServer(repository.NewInMem())
	defer httpSrv.Close()
	c := &client{t: t, base: httpSrv.URL}

	admin := c.login(c.register("admin", "secret", models.RoleAdmin).Username, "secret")
	userA := c.register("alice", "wonder", models.RoleMember)
	alice := c.login("alice", "wonder")

	resp, err := resty.New().R().SetHeader("Authorization", admin.Token).
		SetBody(`{"isbn":"111","name":"Dune","category":"sci-fi","price":9.99,"quantity":3}`).
		Post(httpSrv.URL + "/api/books")
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.StatusCode())

	resp, err = resty.New().R().SetHeader("Authorization", alice.Token).
		SetBody(map[string]string{"userId": userA.ID}).
		Post(httpSrv.URL + "/api/books/111/borrow")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode())

	// any authenticated caller can read any profile
	var profile models.User
	resp, err = resty.New().R().SetHeader("Authorization", admin.Token).
		SetResult(&profile).Get(httpSrv.URL + "/api/users/" + userA.ID)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode())
	require.Len(t, profile.BorrowedBooks, 1)
	assert.Equal(t, "Dune", profile.BorrowedBooks[0].Name)
}

func TestSubscribeBookAdded(t *testing.T) {
	srv, httpSrv := newTestServer(repository.NewInMem())
	defer httpSrv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, httpSrv.URL+"/api/subscribe/book-added", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	// wait for the stream to attach before publishing
	deadline := time.Now().Add(2 * time.Second)
	for srv.Bus.Subscribers() == 0 {
		require.True(t, time.Now().Before(deadline), "subscriber never attached")
		time.Sleep(10 * time.Millisecond)
	}

	c := &client{t: t, base: httpSrv.URL}
	admin := c.login(c.register("admin", "secret", models.RoleAdmin).Username, "secret")
	createResp, err := resty.New().R().SetHeader("Authorization", admin.Token).
		SetBody(`{"isbn":"111","name":"Dune","category":"sci-fi","price":9.99,"quantity":3}`).
		Post(httpSrv.URL + "/api/books")
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, createResp.StatusCode())

	scanner := bufio.NewScanner(resp.Body)
	var event, data string
	for scanner.Scan() {
		line := scanner.Text()
		if strings.HasPrefix(line, "event:") {
			event = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
		}
		if strings.HasPrefix(line, "data:") {
			data = strings.TrimSpace(strings.TrimPrefix(line, "data:"))
			break
		}
	}
	assert.Equal(t, "bookAdded", event)
	assert.Contains(t, data, `"isbn":"111"`)
}
