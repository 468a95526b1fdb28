// Package downloads implements the download manager behind the
// initiate_download and get_downloads control calls.
//
// Initiation is accept-and-return: the fetch itself runs in the
// background and reports progress through the event sink, so a control
// session never waits on the network. Completed history is persisted
// next to the download directory so it survives restarts.
package downloads
