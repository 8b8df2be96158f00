package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/macchain/backend/pkg/api"
	"github.com/macchain/backend/pkg/output"
	"github.com/macchain/backend/pkg/syncer"
)

type CommunityService struct {
	s *Session
}

func NewCommunityService(s *Session) *CommunityService {
	return &CommunityService{s: s}
}

// Categories lists the discussion categories
func (c *CommunityService) Categories(ctx context.Context) error {
	cats, err := c.s.API.Categories(ctx)
	if err != nil {
		return err
	}
	rows := make([][]string, 0, len(cats))
	for _, cat := range cats {
		rows = append(rows, []string{cat.ID, cat.Icon + " " + cat.Name, cat.Description})
	}
	return output.PrintList("Categories", cats, []string{"ID", "NAME", "DESCRIPTION"}, rows)
}

// Feed prints one page of discussions
func (c *CommunityService) Feed(ctx context.Context, p api.ListParams) error {
	st, err := c.s.Store()
	if err != nil {
		return err
	}
	list, err := st.Feed(ctx, p)
	if err != nil {
		return err
	}
	return printDiscussionPage("Community", list)
}

// Show prints a discussion with its comments. Both load concurrently on
// the task queue.
func (c *CommunityService) Show(ctx context.Context, id string) error {
	st, err := c.s.Store()
	if err != nil {
		return err
	}
	var (
		d        *api.Discussion
		comments []*api.Comment
		errs     = make(chan error, 2)
	)
	st.Tasks().Add(syncer.Task{
		Name:     "load discussion",
		Priority: syncer.PriorityHigh,
		Run: func(ctx context.Context) (err error) {
			d, err = st.Discussion(ctx, id)
			return err
		},
		OnDone: func(err error) { errs <- err },
	})
	st.Tasks().Add(syncer.Task{
		Name:     "load comments",
		Priority: syncer.PriorityNormal,
		Run: func(ctx context.Context) (err error) {
			comments, err = st.Comments(ctx, id)
			return err
		},
		OnDone: func(err error) { errs <- err },
	})
	for i := 0; i < 2; i++ {
		select {
		case err := <-errs:
			if err != nil {
				return err
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	if output.GetOutputFormat() == output.FormatJSON || output.GetOutputFormat() == output.FormatYAML {
		return output.Print("", map[string]interface{}{"discussion": d, "comments": comments})
	}
	if err := output.Print(d.Title, discussionSummary(d)); err != nil {
		return err
	}
	fmt.Fprintln(output.Writer())
	fmt.Fprintln(output.Writer(), d.Content)
	fmt.Fprintln(output.Writer())
	printCommentTree(comments, 0)
	return nil
}

// Post creates a discussion; content is prompted when empty
func (c *CommunityService) Post(ctx context.Context, in api.DiscussionInput) error {
	if err := c.s.RequireAuth(); err != nil {
		return err
	}
	var err error
	if in.Title == "" {
		if in.Title, err = c.s.Prompt.Required("Title: "); err != nil {
			return err
		}
	}
	if in.Content == "" {
		if in.Content, err = c.s.Prompt.Multiline("Content"); err != nil {
			return err
		}
		if in.Content == "" {
			return errors.New("content cannot be empty")
		}
	}
	st, err := c.s.Store()
	if err != nil {
		return err
	}
	d, err := st.CreateDiscussion(ctx, in)
	if err != nil {
		return reportQueued(err, "discussion")
	}
	output.PrintSuccess("✓ Posted %q (%s)", d.Title, d.ID)
	return nil
}

// Edit changes the fields that are set
func (c *CommunityService) Edit(ctx context.Context, id string, update api.DiscussionUpdate) error {
	if err := c.s.RequireAuth(); err != nil {
		return err
	}
	d, err := c.s.API.UpdateDiscussion(ctx, id, update)
	if err != nil {
		return err
	}
	output.PrintSuccess("✓ Updated %q", d.Title)
	return nil
}

// Delete removes a discussion after confirmation
func (c *CommunityService) Delete(ctx context.Context, id string, force bool) error {
	if err := c.s.RequireAuth(); err != nil {
		return err
	}
	if !force {
		ok, err := c.s.Prompt.Confirm(fmt.Sprintf("Delete discussion %s?", id))
		if err != nil || !ok {
			return err
		}
	}
	if err := c.s.API.DeleteDiscussion(ctx, id); err != nil {
		return err
	}
	output.PrintSuccess("✓ Deleted %s", id)
	return nil
}

// Like toggles the like on a discussion
func (c *CommunityService) Like(ctx context.Context, id string) error {
	if err := c.s.RequireAuth(); err != nil {
		return err
	}
	st, err := c.s.Store()
	if err != nil {
		return err
	}
	res, err := st.ToggleLike(ctx, id)
	if err != nil {
		return err
	}
	if res.Liked {
		output.PrintSuccess("♥ Liked (%d like%s)", res.Count, pluralize(res.Count))
	} else {
		output.PrintInfo("Like removed (%d like%s)", res.Count, pluralize(res.Count))
	}
	return nil
}

// Bookmark toggles the bookmark on a discussion
func (c *CommunityService) Bookmark(ctx context.Context, id string) error {
	if err := c.s.RequireAuth(); err != nil {
		return err
	}
	st, err := c.s.Store()
	if err != nil {
		return err
	}
	res, err := st.ToggleBookmark(ctx, id)
	if err != nil {
		return err
	}
	if res.Bookmarked {
		output.PrintSuccess("✓ Bookmarked")
	} else {
		output.PrintInfo("Bookmark removed")
	}
	return nil
}

// Bookmarks prints the user's bookmarked discussions
func (c *CommunityService) Bookmarks(ctx context.Context, page int) error {
	if err := c.s.RequireAuth(); err != nil {
		return err
	}
	st, err := c.s.Store()
	if err != nil {
		return err
	}
	list, err := st.Bookmarks(ctx, page)
	if err != nil {
		return err
	}
	return printDiscussionPage("Bookmarks", list)
}

// Search prints discussions matching query
func (c *CommunityService) Search(ctx context.Context, query string, page int) error {
	list, err := c.s.API.SearchDiscussions(ctx, query, page, 0)
	if err != nil {
		return err
	}
	return printDiscussionPage(fmt.Sprintf("Results for %q", query), list)
}

func printDiscussionPage(title string, list *api.DiscussionList) error {
	pg := list.Pagination
	if pg.TotalPages > 1 {
		title = fmt.Sprintf("%s · page %d/%d · %d total", title, pg.Page, pg.TotalPages, pg.Total)
	}
	return output.PrintList(title, list, discussionHeaders, discussionRows(list.Discussions))
}

func discussionSummary(d *api.Discussion) map[string]interface{} {
	summary := map[string]interface{}{
		"id":       d.ID,
		"author":   authorName(d.Author),
		"likes":    d.LikeCount,
		"comments": d.CommentCount,
		"views":    d.ViewCount,
		"posted":   ago(d.CreatedAt),
		"liked":    d.IsLiked,
	}
	if d.Category != nil {
		summary["category"] = d.Category.Name
	}
	if d.PassageReference != "" {
		summary["passage"] = d.PassageReference
	}
	if d.IsLocked {
		summary["locked"] = true
	}
	return summary
}
