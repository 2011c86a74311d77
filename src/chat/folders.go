package chat

import (
	"context"
	"fmt"
	"slices"
)

// CreateFolder appends a new folder to the folder order.
func (s *Store) CreateFolder(ctx context.Context, name string) (Folder, error) {
	if name == "" {
		return Folder{}, ErrEmptyName
	}
	f := Folder{ID: s.newID(), Name: name, ConversationIDs: []string{}, CreatedAt: s.now()}
	var order []string
	err := s.apply(ctx, "create_folder", func(st *Snapshot) error {
		st.Folders[f.ID] = f
		st.FolderOrder = append(st.FolderOrder, f.ID)
		order = st.FolderOrder
		return nil
	}, func(ctx context.Context) error {
		if err := s.repo.CreateFolder(ctx, folderToRow(f, len(order)-1)); err != nil {
			return err
		}
		return s.repo.ReorderFolders(ctx, order)
	})
	if err != nil {
		return Folder{}, err
	}
	return f, nil
}

func (s *Store) RenameFolder(ctx context.Context, id, name string) error {
	if name == "" {
		return ErrEmptyName
	}
	return s.apply(ctx, "rename_folder", func(st *Snapshot) error {
		f, ok := st.Folders[id]
		if !ok {
			return fmt.Errorf("%w: %s", ErrFolderNotFound, id)
		}
		f.Name = name
		st.Folders[id] = f
		return nil
	}, func(ctx context.Context) error {
		return s.repo.RenameFolder(ctx, id, name)
	})
}

// DeleteFolder removes the folder and moves its conversations, in order, to
// the top of the root list.
func (s *Store) DeleteFolder(ctx context.Context, id string) error {
	var root []string
	return s.apply(ctx, "delete_folder", func(st *Snapshot) error {
		f, ok := st.Folders[id]
		if !ok {
			return fmt.Errorf("%w: %s", ErrFolderNotFound, id)
		}
		for _, cid := range f.ConversationIDs {
			if c, ok := st.Conversations[cid]; ok {
				c.FolderID = nil
				st.Conversations[cid] = c
			}
		}
		st.RootChatOrder = append(slices.Clone(f.ConversationIDs), st.RootChatOrder...)
		st.FolderOrder = remove(st.FolderOrder, id)
		delete(st.Folders, id)
		root = st.RootChatOrder
		return nil
	}, func(ctx context.Context) error {
		if err := s.repo.PlaceConversations(ctx, nil, root); err != nil {
			return err
		}
		return s.repo.DeleteFolder(ctx, id)
	})
}

// MoveChatToFolder appends chatID to the folder, removing it from wherever
// it was.
func (s *Store) MoveChatToFolder(ctx context.Context, chatID, folderID string) error {
	var members []string
	return s.apply(ctx, "move_to_folder", func(st *Snapshot) error {
		c, ok := st.Conversations[chatID]
		if !ok {
			return fmt.Errorf("%w: %s", ErrConversationNotFound, chatID)
		}
		if _, ok := st.Folders[folderID]; !ok {
			return fmt.Errorf("%w: %s", ErrFolderNotFound, folderID)
		}
		detach(st, chatID)
		f := st.Folders[folderID]
		f.ConversationIDs = append(f.ConversationIDs, chatID)
		st.Folders[folderID] = f
		fid := folderID
		c.FolderID = &fid
		st.Conversations[chatID] = c
		members = f.ConversationIDs
		return nil
	}, func(ctx context.Context) error {
		return s.repo.PlaceConversations(ctx, &folderID, members)
	})
}

// MoveChatToRoot puts chatID at the top of the root list.
func (s *Store) MoveChatToRoot(ctx context.Context, chatID string) error {
	var root []string
	return s.apply(ctx, "move_to_root", func(st *Snapshot) error {
		c, ok := st.Conversations[chatID]
		if !ok {
			return fmt.Errorf("%w: %s", ErrConversationNotFound, chatID)
		}
		detach(st, chatID)
		st.RootChatOrder = append([]string{chatID}, st.RootChatOrder...)
		c.FolderID = nil
		st.Conversations[chatID] = c
		root = st.RootChatOrder
		return nil
	}, func(ctx context.Context) error {
		return s.repo.PlaceConversations(ctx, nil, root)
	})
}

func (s *Store) ReorderFolders(ctx context.Context, order []string) error {
	order = slices.Clone(order)
	return s.apply(ctx, "reorder_folders", func(st *Snapshot) error {
		if !isPermutation(st.FolderOrder, order) {
			return ErrInvalidOrder
		}
		st.FolderOrder = order
		return nil
	}, func(ctx context.Context) error {
		return s.repo.ReorderFolders(ctx, order)
	})
}

func (s *Store) ReorderRootChats(ctx context.Context, order []string) error {
	order = slices.Clone(order)
	return s.apply(ctx, "reorder_root", func(st *Snapshot) error {
		if !isPermutation(st.RootChatOrder, order) {
			return ErrInvalidOrder
		}
		st.RootChatOrder = order
		return nil
	}, func(ctx context.Context) error {
		return s.repo.PlaceConversations(ctx, nil, order)
	})
}

func (s *Store) ReorderFolderChats(ctx context.Context, folderID string, order []string) error {
	order = slices.Clone(order)
	return s.apply(ctx, "reorder_folder", func(st *Snapshot) error {
		f, ok := st.Folders[folderID]
		if !ok {
			return fmt.Errorf("%w: %s", ErrFolderNotFound, folderID)
		}
		if !isPermutation(f.ConversationIDs, order) {
			return ErrInvalidOrder
		}
		f.ConversationIDs = order
		st.Folders[folderID] = f
		return nil
	}, func(ctx context.Context) error {
		return s.repo.PlaceConversations(ctx, &folderID, order)
	})
}

// detach removes id from the root list and from every folder.
func detach(st *Snapshot, id string) {
	st.RootChatOrder = remove(st.RootChatOrder, id)
	for fid, f := range st.Folders {
		if slices.Contains(f.ConversationIDs, id) {
			f.ConversationIDs = remove(f.ConversationIDs, id)
			st.Folders[fid] = f
		}
	}
}

func remove(ids []string, id string) []string {
	return slices.DeleteFunc(slices.Clone(ids), func(s string) bool { return s == id })
}

func isPermutation(current, order []string) bool {
	if len(current) != len(order) {
		return false
	}
	a, b := slices.Clone(current), slices.Clone(order)
	slices.Sort(a)
	slices.Sort(b)
	return slices.Equal(a, b)
}
