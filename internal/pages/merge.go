package pages

// mergePatch applies patch over existing. Patch fields take precedence; id and
// createdAt are never touched and updatedAt is always set to now.
func mergePatch(existing Page, patch PagePatch, now int64) Page {
	merged := existing.clone()

	if patch.Title != nil {
		merged.Title = *patch.Title
	}
	if patch.Code != nil {
		merged.Code = *patch.Code
	}

	switch {
	case patch.ClearThumbnail:
		merged.Thumbnail = nil
	case patch.Thumbnail != nil:
		thumb := *patch.Thumbnail
		merged.Thumbnail = &thumb
	}

	merged.UpdatedAt = now
	return merged
}
