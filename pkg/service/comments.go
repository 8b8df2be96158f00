package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/macchain/backend/pkg/api"
	"github.com/macchain/backend/pkg/output"
)

type CommentService struct {
	s *Session
}

func NewCommentService(s *Session) *CommentService {
	return &CommentService{s: s}
}

// List prints a discussion's comment tree
func (c *CommentService) List(ctx context.Context, discussionID string) error {
	st, err := c.s.Store()
	if err != nil {
		return err
	}
	comments, err := st.Comments(ctx, discussionID)
	if err != nil {
		return err
	}
	if f := output.GetOutputFormat(); f == output.FormatJSON || f == output.FormatYAML {
		return output.Print("", comments)
	}
	printCommentTree(comments, 0)
	return nil
}

// Add posts a comment, or a reply when parentID is set
func (c *CommentService) Add(ctx context.Context, discussionID, content, parentID string) error {
	if err := c.s.RequireAuth(); err != nil {
		return err
	}
	if strings.TrimSpace(content) == "" {
		var err error
		if content, err = c.s.Prompt.Multiline("Comment"); err != nil {
			return err
		}
		if strings.TrimSpace(content) == "" {
			return errors.New("comment cannot be empty")
		}
	}
	var parent *string
	if parentID != "" {
		parent = &parentID
	}
	st, err := c.s.Store()
	if err != nil {
		return err
	}
	comment, err := st.CreateComment(ctx, discussionID, content, parent)
	if err != nil {
		return reportQueued(err, "comment")
	}
	output.PrintSuccess("✓ Comment posted (%s)", comment.ID)
	return nil
}

// Edit replaces a comment's content
func (c *CommentService) Edit(ctx context.Context, id, content string) error {
	if err := c.s.RequireAuth(); err != nil {
		return err
	}
	if strings.TrimSpace(content) == "" {
		return errors.New("comment cannot be empty")
	}
	if _, err := c.s.API.UpdateComment(ctx, id, content); err != nil {
		return err
	}
	output.PrintSuccess("✓ Comment updated")
	return nil
}

// Delete removes a comment after confirmation
func (c *CommentService) Delete(ctx context.Context, id string, force bool) error {
	if err := c.s.RequireAuth(); err != nil {
		return err
	}
	if !force {
		ok, err := c.s.Prompt.Confirm(fmt.Sprintf("Delete comment %s?", id))
		if err != nil || !ok {
			return err
		}
	}
	if err := c.s.API.DeleteComment(ctx, id); err != nil {
		return err
	}
	output.PrintSuccess("✓ Comment deleted")
	return nil
}

// Like toggles the like on a comment
func (c *CommentService) Like(ctx context.Context, id string) error {
	if err := c.s.RequireAuth(); err != nil {
		return err
	}
	res, err := c.s.API.ToggleCommentLike(ctx, id)
	if err != nil {
		return err
	}
	if res.Liked {
		output.PrintSuccess("♥ Liked (%d)", res.Count)
	} else {
		output.PrintInfo("Like removed (%d)", res.Count)
	}
	return nil
}

func printCommentTree(comments []*api.Comment, depth int) {
	w := output.Writer()
	if depth == 0 && len(comments) == 0 {
		fmt.Fprintln(w, "No comments yet.")
		return
	}
	faint := color.New(color.Faint).SprintFunc()
	indent := strings.Repeat("  ", depth)
	for _, c := range comments {
		fmt.Fprintf(w, "%s%s %s %s\n", indent, color.CyanString(authorName(c.Author)), faint(ago(c.CreatedAt)), faint("["+c.ID+"]"))
		for _, line := range strings.Split(c.Content, "\n") {
			fmt.Fprintf(w, "%s  %s\n", indent, line)
		}
		if c.LikeCount > 0 {
			fmt.Fprintf(w, "%s  %s%d\n", indent, likeMark(c.IsLiked), c.LikeCount)
		}
		printCommentTree(c.Replies, depth+1)
	}
}
